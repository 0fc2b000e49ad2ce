package directory_test

import (
	"context"
	"testing"

	"github.com/calum/gatehouse/internal/auth"
	"github.com/calum/gatehouse/internal/database/models"
	"github.com/calum/gatehouse/internal/directory"
	"github.com/calum/gatehouse/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateOrgAndUser(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	store := directory.NewStore(db)

	t.Run("creates organization and owning user together", func(t *testing.T) {
		user, err := store.CreateOrgAndUser(ctx, auth.NewAccount{
			Provider:     auth.ProviderLocal,
			Email:        "owner@example.com",
			PasswordHash: "x",
			Name:         "Owner",
			Company:      "Example Co",
		})
		require.NoError(t, err)
		require.NotNil(t, user.Organization)
		assert.Equal(t, "Example Co", user.Organization.Name)
		assert.Equal(t, user.Organization.ID, user.OrganizationID)

		var orgCount, userCount int64
		db.Model(&models.Organization{}).Count(&orgCount)
		db.Model(&models.User{}).Count(&userCount)
		assert.Equal(t, int64(1), orgCount)
		assert.Equal(t, int64(1), userCount)
	})

	t.Run("defaults organization name from user name", func(t *testing.T) {
		user, err := store.CreateOrgAndUser(ctx, auth.NewAccount{
			Provider:     auth.ProviderLocal,
			Email:        "ada@example.com",
			PasswordHash: "x",
			Name:         "Ada",
		})
		require.NoError(t, err)
		assert.Contains(t, user.Organization.Name, "Ada")
	})

	t.Run("duplicate email fails and leaves no orphan organization", func(t *testing.T) {
		var before int64
		db.Model(&models.Organization{}).Count(&before)

		_, err := store.CreateOrgAndUser(ctx, auth.NewAccount{
			Provider:     auth.ProviderLocal,
			Email:        "owner@example.com",
			PasswordHash: "x",
			Name:         "Second Owner",
		})
		require.Error(t, err)

		// The transaction must roll back the organization as well.
		var after int64
		db.Model(&models.Organization{}).Count(&after)
		assert.Equal(t, before, after)
	})

	t.Run("same email allowed under a different provider", func(t *testing.T) {
		_, err := store.CreateOrgAndUser(ctx, auth.NewAccount{
			Provider:   auth.ProviderGoogle,
			Email:      "owner@example.com",
			ExternalID: "g-1",
			Name:       "Owner",
			Activated:  true,
		})
		require.NoError(t, err)
	})
}

func TestStore_Lookups(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	store := directory.NewStore(db)

	local, err := store.CreateOrgAndUser(ctx, auth.NewAccount{
		Provider:     auth.ProviderLocal,
		Email:        "user@example.com",
		PasswordHash: "x",
		Name:         "User",
	})
	require.NoError(t, err)

	federated, err := store.CreateOrgAndUser(ctx, auth.NewAccount{
		Provider:   auth.ProviderGitHub,
		Email:      "user@example.com",
		ExternalID: "gh-42",
		Name:       "User",
		Activated:  true,
	})
	require.NoError(t, err)

	t.Run("by email is provider scoped", func(t *testing.T) {
		found, err := store.UserByEmail(ctx, auth.ProviderLocal, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, local.ID, found.ID)
		require.NotNil(t, found.Organization)
	})

	t.Run("by external id", func(t *testing.T) {
		found, err := store.UserByExternalID(ctx, auth.ProviderGitHub, "gh-42")
		require.NoError(t, err)
		assert.Equal(t, federated.ID, found.ID)
	})

	t.Run("by id", func(t *testing.T) {
		found, err := store.UserByID(ctx, local.ID)
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", found.Email)
	})

	t.Run("missing user maps to sentinel", func(t *testing.T) {
		_, err := store.UserByEmail(ctx, auth.ProviderLocal, "nobody@example.com")
		assert.ErrorIs(t, err, auth.ErrUserNotFound)

		_, err = store.UserByExternalID(ctx, auth.ProviderGoogle, "missing")
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})
}

func TestStore_Activate(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	store := directory.NewStore(db)

	user, err := store.CreateOrgAndUser(ctx, auth.NewAccount{
		Provider:     auth.ProviderLocal,
		Email:        "pending@example.com",
		PasswordHash: "x",
		Name:         "Pending",
	})
	require.NoError(t, err)
	require.False(t, user.Activated)

	require.NoError(t, store.Activate(ctx, user.ID))

	found, err := store.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, found.Activated)

	assert.ErrorIs(t, store.Activate(ctx, uuid.New()), auth.ErrUserNotFound)
}
