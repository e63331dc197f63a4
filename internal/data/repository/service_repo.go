package repository

import (
	"context"
	"errors"
	"fmt"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ServiceRepository persists the cleaning service catalog.
type ServiceRepository interface {
	Create(ctx context.Context, svc *entity.CleaningService) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.CleaningService, error)
	FindAll(ctx context.Context, category *entity.ServiceCategory, activeOnly bool, limit, offset int) ([]*entity.CleaningService, error)
	CountAll(ctx context.Context, category *entity.ServiceCategory, activeOnly bool) (int64, error)
	Update(ctx context.Context, svc *entity.CleaningService) error
	UpdateImage(ctx context.Context, id uuid.UUID, imageURL string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type serviceRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewServiceRepository(db database.PgxIface, log *zap.Logger) ServiceRepository {
	return &serviceRepository{
		db:  db,
		log: log.With(zap.String("repository", "service")),
	}
}

const serviceColumns = `id, name, description, category, base_price, duration_minutes,
		       image_url, is_active, created_at, updated_at, deleted_at`

func scanService(row pgx.Row) (*entity.CleaningService, error) {
	var svc entity.CleaningService
	err := row.Scan(
		&svc.ID,
		&svc.Name,
		&svc.Description,
		&svc.Category,
		&svc.BasePrice,
		&svc.DurationMinutes,
		&svc.ImageURL,
		&svc.IsActive,
		&svc.CreatedAt,
		&svc.UpdatedAt,
		&svc.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *serviceRepository) Create(ctx context.Context, svc *entity.CleaningService) error {
	query := `
		INSERT INTO services (id, name, description, category, base_price, duration_minutes,
		                      image_url, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		svc.ID,
		svc.Name,
		svc.Description,
		svc.Category,
		svc.BasePrice,
		svc.DurationMinutes,
		svc.ImageURL,
		svc.IsActive,
		svc.CreatedAt,
		svc.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create service", zap.Error(err), zap.String("name", svc.Name))
		return fmt.Errorf("create service %s: %w", svc.Name, err)
	}
	return nil
}

func (r *serviceRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.CleaningService, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = $1 AND deleted_at IS NULL`

	svc, err := scanService(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find service by ID", zap.Error(err), zap.String("service_id", id.String()))
		return nil, fmt.Errorf("find service by ID %s: %w", id.String(), err)
	}
	return svc, nil
}

func (r *serviceRepository) FindAll(ctx context.Context, category *entity.ServiceCategory, activeOnly bool, limit, offset int) ([]*entity.CleaningService, error) {
	query := `
		SELECT ` + serviceColumns + `
		FROM services
		WHERE deleted_at IS NULL
		  AND ($1::text IS NULL OR category = $1)
		  AND (NOT $2 OR is_active)
		ORDER BY name ASC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Query(ctx, query, category, activeOnly, limit, offset)
	if err != nil {
		r.log.Error("Failed to list services", zap.Error(err))
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var services []*entity.CleaningService
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			r.log.Error("Failed to scan service row", zap.Error(err))
			return nil, fmt.Errorf("scan service row: %w", err)
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate service rows: %w", err)
	}
	return services, nil
}

func (r *serviceRepository) CountAll(ctx context.Context, category *entity.ServiceCategory, activeOnly bool) (int64, error) {
	query := `
		SELECT COUNT(*) FROM services
		WHERE deleted_at IS NULL
		  AND ($1::text IS NULL OR category = $1)
		  AND (NOT $2 OR is_active)
	`

	var count int64
	if err := r.db.QueryRow(ctx, query, category, activeOnly).Scan(&count); err != nil {
		r.log.Error("Failed to count services", zap.Error(err))
		return 0, fmt.Errorf("count services: %w", err)
	}
	return count, nil
}

func (r *serviceRepository) Update(ctx context.Context, svc *entity.CleaningService) error {
	query := `
		UPDATE services
		SET name = $2, description = $3, category = $4, base_price = $5,
		    duration_minutes = $6, is_active = $7, updated_at = $8
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.Exec(ctx, query,
		svc.ID,
		svc.Name,
		svc.Description,
		svc.Category,
		svc.BasePrice,
		svc.DurationMinutes,
		svc.IsActive,
		svc.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update service", zap.Error(err), zap.String("service_id", svc.ID.String()))
		return fmt.Errorf("update service %s: %w", svc.ID.String(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("update service %s: %w", svc.ID.String(), ErrNoRowsAffected)
	}
	return nil
}

func (r *serviceRepository) UpdateImage(ctx context.Context, id uuid.UUID, imageURL string) error {
	query := `UPDATE services SET image_url = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.Exec(ctx, query, id, imageURL)
	if err != nil {
		r.log.Error("Failed to update service image", zap.Error(err), zap.String("service_id", id.String()))
		return fmt.Errorf("update image of service %s: %w", id.String(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("update image of service %s: %w", id.String(), ErrNoRowsAffected)
	}
	return nil
}

func (r *serviceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE services SET deleted_at = NOW(), is_active = false WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to delete service", zap.Error(err), zap.String("service_id", id.String()))
		return fmt.Errorf("delete service %s: %w", id.String(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete service %s: %w", id.String(), ErrNoRowsAffected)
	}

	r.log.Info("Service deleted", zap.String("service_id", id.String()))
	return nil
}
