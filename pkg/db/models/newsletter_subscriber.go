package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NewsletterSubscriber struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email     string    `gorm:"column:email;not null;uniqueIndex:ux_newsletter_subscribers_email"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (n *NewsletterSubscriber) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
