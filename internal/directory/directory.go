// Package directory is the gorm-backed user directory and organization
// provisioner consumed by the auth router.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/calum/gatehouse/internal/auth"
	"github.com/calum/gatehouse/internal/database/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) UserByEmail(ctx context.Context, provider auth.Provider, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Organization").
		Where("provider = ? AND email = ?", provider.String(), email).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) UserByExternalID(ctx context.Context, provider auth.Provider, externalID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Organization").
		Where("provider = ? AND external_id = ?", provider.String(), externalID).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Organization").
		First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateOrgAndUser creates an organization and its owning user in one
// transaction. Concurrent registrations for the same email race past
// the router's existence check; the unique (provider, email) index
// makes exactly one of them win here.
func (s *Store) CreateOrgAndUser(ctx context.Context, acct auth.NewAccount) (*models.User, error) {
	orgName := acct.Company
	if orgName == "" {
		if acct.Name != "" {
			orgName = acct.Name + "'s Team"
		} else {
			orgName = strings.SplitN(acct.Email, "@", 2)[0] + "'s Team"
		}
	}

	org := models.Organization{
		Name: orgName,
		Slug: generateSlug(orgName),
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&org).Error; err != nil {
			return err
		}

		user = models.User{
			Email:          acct.Email,
			PasswordHash:   acct.PasswordHash,
			Name:           acct.Name,
			Provider:       acct.Provider.String(),
			ExternalID:     acct.ExternalID,
			Activated:      acct.Activated,
			OrganizationID: org.ID,
		}

		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, fmt.Errorf("creating organization and user: %w", err)
	}

	user.Organization = &org
	return &user, nil
}

// Activate flips the activation flag, the target of the emailed link.
func (s *Store) Activate(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("activated", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func generateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "'", "")
	// Random suffix to ensure uniqueness
	return slug + "-" + uuid.NewString()[:8]
}

// Compile-time interface satisfaction checks
var (
	_ auth.UserDirectory           = (*Store)(nil)
	_ auth.OrganizationProvisioner = (*Store)(nil)
)
