package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"catalog-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	settings *models.TenantSettings
	err      error
	calls    int
}

func (f *fakeStore) GetTenantSettings(ctx context.Context, tenantID *string) (*models.TenantSettings, error) {
	f.calls++
	return f.settings, f.err
}

type fakeCache struct {
	data map[string][]byte
}

func (f *fakeCache) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, ok := f.data[key]
	return raw, ok
}

func (f *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	f.data[key] = value
}

func TestGetReturnsStoredSettings(t *testing.T) {
	store := &fakeStore{settings: &models.TenantSettings{
		Services: models.ServicesSettings{AllowCloning: false},
	}}
	svc := New(store, nil, true, time.Minute)

	tenant := "t1"
	got, err := svc.Get(context.Background(), &tenant)
	require.NoError(t, err)
	assert.False(t, got.Services.AllowCloning)
}

func TestGetFallsBackToDefaults(t *testing.T) {
	svc := New(&fakeStore{}, nil, true, time.Minute)

	tenant := "t1"
	got, err := svc.Get(context.Background(), &tenant)
	require.NoError(t, err)
	assert.True(t, got.Services.AllowCloning)
}

func TestGetPropagatesStoreError(t *testing.T) {
	svc := New(&fakeStore{err: errors.New("down")}, nil, true, time.Minute)

	tenant := "t1"
	_, err := svc.Get(context.Background(), &tenant)
	require.Error(t, err)
}

func TestGetUsesCacheOnSecondRead(t *testing.T) {
	store := &fakeStore{settings: &models.TenantSettings{
		Services: models.ServicesSettings{AllowCloning: false},
	}}
	cache := &fakeCache{data: map[string][]byte{}}
	svc := New(store, cache, true, time.Minute)

	tenant := "t1"
	ctx := context.Background()

	_, err := svc.Get(ctx, &tenant)
	require.NoError(t, err)
	got, err := svc.Get(ctx, &tenant)
	require.NoError(t, err)

	assert.False(t, got.Services.AllowCloning)
	assert.Equal(t, 1, store.calls)
}
