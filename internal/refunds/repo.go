package refunds

import (
	"context"
	"fmt"
	"time"

	"github.com/brickfield/brickfield-backend/pkg/db/models"
	"github.com/brickfield/brickfield-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists refund requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.RefundRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error)
	FindOpenByOrder(ctx context.Context, orderID uuid.UUID) (*models.RefundRequest, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.RefundRequest, error)
	ListByStatus(ctx context.Context, status enums.RefundRequestStatus) ([]models.RefundRequest, error)
	// Claim flips a request between statuses only when it still holds the
	// expected one, so two admins cannot process the same request at once.
	Claim(ctx context.Context, id uuid.UUID, from, to enums.RefundRequestStatus) (bool, error)
	Resolve(ctx context.Context, request *models.RefundRequest) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the refund request repository.
func NewRepository(db *gorm.DB) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	return &repository{db: db}, nil
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.RefundRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error) {
	var request models.RefundRequest
	if err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) FindOpenByOrder(ctx context.Context, orderID uuid.UUID) (*models.RefundRequest, error) {
	var request models.RefundRequest
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status IN ?", orderID, []enums.RefundRequestStatus{
			enums.RefundRequestStatusPending,
			enums.RefundRequestStatusProcessing,
		}).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.RefundRequest, error) {
	var requests []models.RefundRequest
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *repository) ListByStatus(ctx context.Context, status enums.RefundRequestStatus) ([]models.RefundRequest, error) {
	var requests []models.RefundRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *repository) Claim(ctx context.Context, id uuid.UUID, from, to enums.RefundRequestStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.RefundRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) Resolve(ctx context.Context, request *models.RefundRequest) error {
	return r.db.WithContext(ctx).Save(request).Error
}
