package services

import (
	"context"
	"testing"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/app/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProfiles struct{ stored []*models.Profile }

func (f *fakeProfiles) Create(_ context.Context, p *models.Profile) error {
	f.stored = append(f.stored, p)
	return nil
}

func (f *fakeProfiles) GetByID(context.Context, int64) (*models.Profile, error) {
	return &models.Profile{}, nil
}

func (f *fakeProfiles) List(context.Context, repositories.ProfileFilter) ([]*models.Profile, repositories.PageInfo, error) {
	return nil, repositories.PageInfo{}, nil
}

func (f *fakeProfiles) Update(_ context.Context, p *models.Profile) error {
	f.stored = append(f.stored, p)
	return nil
}

func (f *fakeProfiles) Delete(context.Context, int64) error { return nil }

func TestProfiles_GuestsNeverKeepLibraryCard(t *testing.T) {
	profiles := &fakeProfiles{}
	svc := NewUserService(nil, profiles, nil)
	ctx := context.Background()

	require.NoError(t, svc.CreateProfile(ctx, &models.Profile{UserID: 1, LibraryCard: strPtr("LC-0001")}))
	require.NoError(t, svc.UpdateProfile(ctx, 7, &models.Profile{UserID: 1, UserType: models.UserTypeReader, LibraryCard: strPtr("LC-0001")}))
	require.NoError(t, svc.UpdateProfile(ctx, 7, &models.Profile{UserID: 1, UserType: models.UserTypeGuest, LibraryCard: strPtr("LC-0001")}))

	require.Len(t, profiles.stored, 3)
	assert.Equal(t, models.UserTypeGuest, profiles.stored[0].UserType)
	assert.Nil(t, profiles.stored[0].LibraryCard)
	assert.Equal(t, "LC-0001", *profiles.stored[1].LibraryCard)
	assert.Equal(t, int64(7), profiles.stored[1].ID)
	assert.Nil(t, profiles.stored[2].LibraryCard)
}
