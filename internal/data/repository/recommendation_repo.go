package repository

import (
	"context"
	"fmt"

	"cleaning-booking/internal/data/entity"
	"cleaning-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// RecommendationRepository scores services by co-booking and popularity.
// Scores count distinct customers over non-cancelled bookings.
type RecommendationRepository interface {
	CoBookedServices(ctx context.Context, serviceID uuid.UUID, limit int) ([]entity.ServiceAffinity, error)
	CoBookedForUser(ctx context.Context, userID uuid.UUID, limit int) ([]entity.ServiceAffinity, error)
	PopularServices(ctx context.Context, category *entity.ServiceCategory, exclude []uuid.UUID, limit int) ([]entity.ServiceAffinity, error)
}

type recommendationRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewRecommendationRepository(db database.PgxIface, log *zap.Logger) RecommendationRepository {
	return &recommendationRepository{
		db:  db,
		log: log.With(zap.String("repository", "recommendation")),
	}
}

const affinityServiceColumns = `s.id, s.name, s.description, s.category, s.base_price, s.duration_minutes,
		       s.image_url, s.is_active, s.created_at, s.updated_at, s.deleted_at`

func (r *recommendationRepository) collect(rows pgx.Rows) ([]entity.ServiceAffinity, error) {
	defer rows.Close()

	var result []entity.ServiceAffinity
	for rows.Next() {
		var svc entity.CleaningService
		var score int64
		err := rows.Scan(
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
			&score,
		)
		if err != nil {
			r.log.Error("Failed to scan recommendation row", zap.Error(err))
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		result = append(result, entity.ServiceAffinity{Service: &svc, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recommendations: %w", err)
	}
	return result, nil
}

func (r *recommendationRepository) CoBookedServices(ctx context.Context, serviceID uuid.UUID, limit int) ([]entity.ServiceAffinity, error) {
	query := `
		SELECT ` + affinityServiceColumns + `, COUNT(DISTINCT other.user_id) AS score
		FROM bookings base
		JOIN bookings other ON other.user_id = base.user_id
		     AND other.service_id <> base.service_id
		     AND other.status <> 'cancelled'
		JOIN services s ON s.id = other.service_id AND s.is_active AND s.deleted_at IS NULL
		WHERE base.service_id = $1 AND base.status <> 'cancelled'
		GROUP BY s.id
		ORDER BY score DESC, s.name
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, serviceID, limit)
	if err != nil {
		r.log.Error("Failed to find co-booked services", zap.Error(err), zap.String("service_id", serviceID.String()))
		return nil, fmt.Errorf("co-booked services of %s: %w", serviceID.String(), err)
	}
	return r.collect(rows)
}

// CoBookedForUser ranks services that customers sharing a service with the user also booked,
// excluding everything the user has already booked.
func (r *recommendationRepository) CoBookedForUser(ctx context.Context, userID uuid.UUID, limit int) ([]entity.ServiceAffinity, error) {
	query := `
		WITH mine AS (
			SELECT DISTINCT service_id FROM bookings
			WHERE user_id = $1 AND status <> 'cancelled'
		)
		SELECT ` + affinityServiceColumns + `, COUNT(DISTINCT other.user_id) AS score
		FROM bookings peer
		JOIN mine ON mine.service_id = peer.service_id
		JOIN bookings other ON other.user_id = peer.user_id AND other.status <> 'cancelled'
		JOIN services s ON s.id = other.service_id AND s.is_active AND s.deleted_at IS NULL
		WHERE peer.user_id <> $1
		  AND peer.status <> 'cancelled'
		  AND other.service_id NOT IN (SELECT service_id FROM bookings WHERE user_id = $1)
		GROUP BY s.id
		ORDER BY score DESC, s.name
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		r.log.Error("Failed to find recommendations for user", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("co-booked services for user %s: %w", userID.String(), err)
	}
	return r.collect(rows)
}

func (r *recommendationRepository) PopularServices(ctx context.Context, category *entity.ServiceCategory, exclude []uuid.UUID, limit int) ([]entity.ServiceAffinity, error) {
	if exclude == nil {
		exclude = []uuid.UUID{}
	}

	query := `
		SELECT ` + affinityServiceColumns + `, COUNT(DISTINCT b.user_id) AS score
		FROM services s
		LEFT JOIN bookings b ON b.service_id = s.id AND b.status <> 'cancelled'
		WHERE s.is_active AND s.deleted_at IS NULL
		  AND ($1::text IS NULL OR s.category = $1)
		  AND NOT (s.id = ANY($2))
		GROUP BY s.id
		ORDER BY score DESC, s.name
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, category, exclude, limit)
	if err != nil {
		r.log.Error("Failed to find popular services", zap.Error(err))
		return nil, fmt.Errorf("popular services: %w", err)
	}
	return r.collect(rows)
}
