package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/dto/request"
	"cleaning-booking/internal/dto/response"
	"cleaning-booking/pkg/cache"
	"cleaning-booking/pkg/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const catalogCachePrefix = "catalog:"

// MaxImageSize bounds service image uploads.
const MaxImageSize = 5 << 20

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type CatalogService interface {
	ListServices(ctx context.Context, filter request.ServiceFilter) (*response.PaginatedResponse[response.ServiceResponse], error)
	GetService(ctx context.Context, id uuid.UUID) (*response.ServiceResponse, error)
	CreateService(ctx context.Context, req *request.CreateServiceRequest) (*response.ServiceResponse, error)
	UpdateService(ctx context.Context, id uuid.UUID, req *request.UpdateServiceRequest) (*response.ServiceResponse, error)
	DeleteService(ctx context.Context, id uuid.UUID) error
	UploadImage(ctx context.Context, id uuid.UUID, contentType string, body io.Reader, size int64) (*response.ServiceResponse, error)
}

type catalogService struct {
	services repository.ServiceRepository
	storage  storage.ObjectStorage
	cache    *cache.TTLCache
	log      *zap.Logger
	now      func() time.Time
}

// NewCatalogService accepts a nil store; uploads then report the feature as unavailable.
func NewCatalogService(repo *repository.Repository, store storage.ObjectStorage, c *cache.TTLCache, log *zap.Logger) CatalogService {
	return &catalogService{
		services: repo.Service,
		storage:  store,
		cache:    c,
		log:      log.With(zap.String("service", "catalog")),
		now:      time.Now,
	}
}

func (s *catalogService) ListServices(ctx context.Context, filter request.ServiceFilter) (*response.PaginatedResponse[response.ServiceResponse], error) {
	var category *entity.ServiceCategory
	key := fmt.Sprintf("%slist:all:%d:%d", catalogCachePrefix, filter.Page, filter.Limit())
	if filter.Category != nil {
		c := entity.ServiceCategory(*filter.Category)
		category = &c
		key = fmt.Sprintf("%slist:%s:%d:%d", catalogCachePrefix, c, filter.Page, filter.Limit())
	}

	return cache.GetOrLoad(s.cache, key, func() (*response.PaginatedResponse[response.ServiceResponse], error) {
		services, err := s.services.FindAll(ctx, category, true, filter.Limit(), filter.Offset())
		if err != nil {
			return nil, fmt.Errorf("list services: %w", err)
		}
		total, err := s.services.CountAll(ctx, category, true)
		if err != nil {
			return nil, fmt.Errorf("count services: %w", err)
		}

		data := make([]response.ServiceResponse, 0, len(services))
		for _, svc := range services {
			data = append(data, response.ServiceToResponse(svc))
		}
		return response.NewPaginatedResponse(data, filter.Page, filter.Limit(), total), nil
	})
}

func (s *catalogService) GetService(ctx context.Context, id uuid.UUID) (*response.ServiceResponse, error) {
	key := catalogCachePrefix + "item:" + id.String()
	return cache.GetOrLoad(s.cache, key, func() (*response.ServiceResponse, error) {
		svc, err := s.findService(ctx, id)
		if err != nil {
			return nil, err
		}
		if !svc.IsActive {
			return nil, newError(ErrNotFound, "service not found")
		}
		resp := response.ServiceToResponse(svc)
		return &resp, nil
	})
}

func (s *catalogService) CreateService(ctx context.Context, req *request.CreateServiceRequest) (*response.ServiceResponse, error) {
	if !req.BasePrice.IsPositive() {
		return nil, fieldError("base_price", "Must be greater than 0")
	}

	now := s.now()
	svc := &entity.CleaningService{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:            req.Name,
		Description:     req.Description,
		Category:        entity.ServiceCategory(req.Category),
		BasePrice:       req.BasePrice.Round(2),
		DurationMinutes: req.DurationMinutes,
		IsActive:        true,
	}
	if req.IsActive != nil {
		svc.IsActive = *req.IsActive
	}

	if err := s.services.Create(ctx, svc); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	s.invalidate()

	s.log.Info("Service created", zap.String("service_id", svc.ID.String()), zap.String("name", svc.Name))

	resp := response.ServiceToResponse(svc)
	return &resp, nil
}

func (s *catalogService) UpdateService(ctx context.Context, id uuid.UUID, req *request.UpdateServiceRequest) (*response.ServiceResponse, error) {
	svc, err := s.findService(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		svc.Name = *req.Name
	}
	if req.Description != nil {
		svc.Description = *req.Description
	}
	if req.Category != nil {
		svc.Category = entity.ServiceCategory(*req.Category)
	}
	if req.BasePrice != nil {
		if !req.BasePrice.IsPositive() {
			return nil, fieldError("base_price", "Must be greater than 0")
		}
		svc.BasePrice = req.BasePrice.Round(2)
	}
	if req.DurationMinutes != nil {
		svc.DurationMinutes = *req.DurationMinutes
	}
	if req.IsActive != nil {
		svc.IsActive = *req.IsActive
	}
	svc.UpdatedAt = s.now()

	if err := s.services.Update(ctx, svc); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, newError(ErrNotFound, "service not found")
		}
		return nil, fmt.Errorf("update service: %w", err)
	}
	s.invalidate()

	s.log.Info("Service updated", zap.String("service_id", id.String()))

	resp := response.ServiceToResponse(svc)
	return &resp, nil
}

func (s *catalogService) DeleteService(ctx context.Context, id uuid.UUID) error {
	if err := s.services.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return newError(ErrNotFound, "service not found")
		}
		return fmt.Errorf("delete service: %w", err)
	}
	s.invalidate()

	s.log.Info("Service deleted", zap.String("service_id", id.String()))
	return nil
}

func (s *catalogService) UploadImage(ctx context.Context, id uuid.UUID, contentType string, body io.Reader, size int64) (*response.ServiceResponse, error) {
	if s.storage == nil {
		return nil, newError(ErrUnavailable, "image storage is not configured")
	}

	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, fieldError("image", "Must be a JPEG, PNG or WebP image")
	}
	if size <= 0 || size > MaxImageSize {
		return nil, fieldError("image", fmt.Sprintf("Must be at most %d bytes", MaxImageSize))
	}

	svc, err := s.findService(ctx, id)
	if err != nil {
		return nil, err
	}

	key := path.Join("services", id.String(), uuid.NewString()+ext)
	url, err := s.storage.Upload(ctx, key, contentType, body, size)
	if err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			return nil, newError(ErrUnavailable, "image storage is not configured")
		}
		return nil, fmt.Errorf("upload service image: %w", err)
	}

	if err := s.services.UpdateImage(ctx, id, url); err != nil {
		return nil, fmt.Errorf("save service image url: %w", err)
	}
	s.invalidate()

	svc.ImageURL = &url
	s.log.Info("Service image uploaded", zap.String("service_id", id.String()), zap.String("key", key))

	resp := response.ServiceToResponse(svc)
	return &resp, nil
}

func (s *catalogService) findService(ctx context.Context, id uuid.UUID) (*entity.CleaningService, error) {
	svc, err := s.services.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find service: %w", err)
	}
	if svc == nil {
		return nil, newError(ErrNotFound, "service not found")
	}
	return svc, nil
}

func (s *catalogService) invalidate() {
	s.cache.DeletePrefix(catalogCachePrefix)
}
