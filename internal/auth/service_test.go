package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

type stubSessionManager struct {
	sessions map[string]uuid.UUID
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string, userID uuid.UUID) error {
	s.sessions[accessID] = userID
	return nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	delete(s.sessions, accessID)
	return nil
}

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 30}

// cheap argon2 parameters keep the tests fast
var testPassword = config.PasswordConfig{ArgonMemoryKB: 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

func buildTestService(t *testing.T) (Service, *stubSessionManager) {
	t.Helper()
	client := dbtest.New(t)
	sessions := &stubSessionManager{sessions: map[string]uuid.UUID{}}
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(client.DB()),
		SessionManager: sessions,
		JWTConfig:      testJWT,
		PasswordConfig: testPassword,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, sessions
}

func TestRegisterThenLogin(t *testing.T) {
	svc, sessions := buildTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterRequest{Name: "Ada", Email: "Ada@Example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.User.Email != "ada@example.com" || reg.User.Role != enums.UserRoleUser {
		t.Fatalf("unexpected user %+v", reg.User)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, reg.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != reg.User.ID {
		t.Fatalf("expected token subject %s, got %s", reg.User.ID, claims.UserID)
	}
	if _, ok := sessions.sessions[claims.ID]; !ok {
		t.Fatalf("expected session for jti %s", claims.ID)
	}

	login, err := svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != reg.User.ID {
		t.Fatalf("login returned a different user")
	}

	me, err := svc.Me(ctx, reg.User.ID)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.Name != "Ada" {
		t.Fatalf("unexpected name %q", me.Name)
	}

	if err := svc.Logout(ctx, claims.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := sessions.sessions[claims.ID]; ok {
		t.Fatal("expected session to be revoked")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := buildTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(ctx, RegisterRequest{Name: "Ada 2", Email: "ADA@example.com", Password: "secret2"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict || typed.Message() != "User already exists" {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _ := buildTestService(t)
	_, err := svc.Register(context.Background(), RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "123"})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, _ := buildTestService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, req := range []LoginRequest{
		{Email: "ada@example.com", Password: "wrong-pass"},
		{Email: "nobody@example.com", Password: "secret1"},
		{Email: " ", Password: "secret1"},
	} {
		_, err := svc.Login(ctx, req)
		if pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized for %+v, got %v", req, err)
		}
	}
}

func TestMeUnknownUser(t *testing.T) {
	svc, _ := buildTestService(t)
	if _, err := svc.Me(context.Background(), uuid.New()); pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLoginUpgradesHashFromOlderCost(t *testing.T) {
	client := dbtest.New(t)
	repo := users.NewRepository(client.DB())
	ctx := context.Background()

	old, err := security.NewPasswordHasher(testPassword).Hash("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user, err := repo.Create(ctx, users.CreateUserDTO{Name: "Ada", Email: "ada@example.com", PasswordHash: old})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	raised := testPassword
	raised.ArgonTime = 2
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: &stubSessionManager{sessions: map[string]uuid.UUID{}},
		JWTConfig:      testJWT,
		PasswordConfig: raised,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	if _, err := svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	stored, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if stored.PasswordHash == old || !strings.Contains(stored.PasswordHash, "t=2,") {
		t.Fatalf("expected hash rewritten at the raised cost, got %q", stored.PasswordHash)
	}
	if _, err := svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("login after upgrade: %v", err)
	}
}
