package models

import "github.com/google/uuid"

type User struct {
	Base
	Email        string `gorm:"uniqueIndex:idx_users_provider_email;not null" json:"email"`
	PasswordHash string `json:"-"` // empty for federated accounts
	Name         string `json:"name"`

	// Provider records which identity provider owns this account
	// ("local", "google", "github"). Uniqueness of an email is scoped
	// to its provider: the same address may exist once per provider.
	Provider   string `gorm:"uniqueIndex:idx_users_provider_email;not null;default:'local'" json:"provider"`
	ExternalID string `gorm:"index" json:"-"` // provider-issued subject, federated only

	Activated      bool      `gorm:"default:false" json:"activated"`
	OrganizationID uuid.UUID `gorm:"type:uuid;index" json:"organization_id"`

	// Relationships
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

func (User) TableName() string {
	return "users"
}
