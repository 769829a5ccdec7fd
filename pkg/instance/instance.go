// Package instance names the running process for locks and log lines.
package instance

import (
	"fmt"
	"os"

	"github.com/angelmondragon/storefront-backend/pkg/env"
)

// EnvInstanceID overrides the derived identifier.
const EnvInstanceID = "STOREFRONT_INSTANCE_ID"

// ID returns STOREFRONT_INSTANCE_ID when set, otherwise hostname-pid.
func ID() string {
	if id := env.Get(EnvInstanceID, ""); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
