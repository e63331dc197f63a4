package usecase

import (
	"context"
	"testing"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/dto/request"
	"cleaning-booking/pkg/cache"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCatalog(services *MockServiceRepository) *catalogService {
	return &catalogService{
		services: services,
		cache:    cache.New(time.Minute),
		log:      zap.NewNop(),
		now:      func() time.Time { return fixedNow },
	}
}

func TestCatalogService_UpdateInvalidatesCache(t *testing.T) {
	services := new(MockServiceRepository)
	svc := newTestCatalog(services)
	item := &entity.CleaningService{
		Base:            entity.Base{ID: uuid.New()},
		Name:            "Deep clean",
		BasePrice:       decimal.NewFromInt(200),
		DurationMinutes: 180,
		IsActive:        true,
	}
	services.On("FindByID", mock.Anything, item.ID).Return(item, nil)
	services.On("Update", mock.Anything, item).Return(nil)

	first, err := svc.GetService(context.Background(), item.ID)
	require.NoError(t, err)
	_, err = svc.GetService(context.Background(), item.ID)
	require.NoError(t, err)
	services.AssertNumberOfCalls(t, "FindByID", 1)

	name := "Deep clean plus"
	_, err = svc.UpdateService(context.Background(), item.ID, &request.UpdateServiceRequest{Name: &name})
	require.NoError(t, err)

	after, err := svc.GetService(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Deep clean", first.Name)
	assert.Equal(t, "Deep clean plus", after.Name)
	services.AssertNumberOfCalls(t, "FindByID", 3)
}

func TestCatalogService_Delete(t *testing.T) {
	t.Run("drops cached entries", func(t *testing.T) {
		services := new(MockServiceRepository)
		svc := newTestCatalog(services)
		id := uuid.New()
		svc.cache.Set(catalogCachePrefix+"item:"+id.String(), "stale")
		services.On("Delete", mock.Anything, id).Return(nil)

		require.NoError(t, svc.DeleteService(context.Background(), id))
		assert.Zero(t, svc.cache.Len())
	})

	t.Run("unknown service", func(t *testing.T) {
		services := new(MockServiceRepository)
		svc := newTestCatalog(services)
		id := uuid.New()
		services.On("Delete", mock.Anything, id).Return(repository.ErrNoRowsAffected)

		assert.ErrorIs(t, svc.DeleteService(context.Background(), id), ErrNotFound)
	})
}

func TestCatalogService_GetInactiveIsHidden(t *testing.T) {
	services := new(MockServiceRepository)
	svc := newTestCatalog(services)
	item := &entity.CleaningService{Base: entity.Base{ID: uuid.New()}, Name: "Retired"}
	services.On("FindByID", mock.Anything, item.ID).Return(item, nil)

	_, err := svc.GetService(context.Background(), item.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
