package repositories

import (
	"errors"

	"sparkreview_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrRequestNotFound = errors.New("review request not found")
	ErrRequestClosed   = errors.New("review request is not open")
	ErrClaimCapReached = errors.New("claim cap reached for this request")
)

type RequestRepository interface {
	Create(db *gorm.DB, request *models.ReviewRequest) error
	FindByID(db *gorm.DB, id string) (*models.ReviewRequest, error)
	FindOpen(db *gorm.DB, limit, offset int) ([]models.ReviewRequest, int64, error)
	FindByOwner(db *gorm.DB, ownerID string, limit, offset int) ([]models.ReviewRequest, int64, error)
	Update(db *gorm.DB, request *models.ReviewRequest) error
	SoftDelete(db *gorm.DB, id string) error

	// TryIncrementClaimed is the claim-cap gate: it bumps reviews_claimed
	// only while the request is open and under cap, as a single conditional
	// UPDATE. Returns ErrClaimCapReached when the condition no longer holds.
	TryIncrementClaimed(db *gorm.DB, requestID string) error
	DecrementClaimed(db *gorm.DB, requestID string) error
	IncrementCompleted(db *gorm.DB, requestID string) error
	MarkCompletedIfFinished(db *gorm.DB, requestID string) error
	UpdateStatus(db *gorm.DB, requestID string, status models.RequestStatus) error
}

type RequestRepositoryImpl struct{}

func NewRequestRepository() RequestRepository {
	return &RequestRepositoryImpl{}
}

func (r *RequestRepositoryImpl) Create(db *gorm.DB, request *models.ReviewRequest) error {
	return db.Create(request).Error
}

func (r *RequestRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.ReviewRequest, error) {
	var request models.ReviewRequest
	if err := db.First(&request, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}

func (r *RequestRepositoryImpl) FindOpen(db *gorm.DB, limit, offset int) ([]models.ReviewRequest, int64, error) {
	var requests []models.ReviewRequest
	var total int64

	query := db.Model(&models.ReviewRequest{}).
		Where("status = ? AND reviews_claimed < reviews_requested", models.RequestStatusOpen)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&requests).Error; err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

func (r *RequestRepositoryImpl) FindByOwner(db *gorm.DB, ownerID string, limit, offset int) ([]models.ReviewRequest, int64, error) {
	var requests []models.ReviewRequest
	var total int64

	query := db.Model(&models.ReviewRequest{}).Where("owner_id = ?", ownerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&requests).Error; err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

func (r *RequestRepositoryImpl) Update(db *gorm.DB, request *models.ReviewRequest) error {
	return db.Save(request).Error
}

func (r *RequestRepositoryImpl) SoftDelete(db *gorm.DB, id string) error {
	return db.Delete(&models.ReviewRequest{}, "id = ?", id).Error
}

func (r *RequestRepositoryImpl) TryIncrementClaimed(db *gorm.DB, requestID string) error {
	result := db.Model(&models.ReviewRequest{}).
		Where("id = ? AND status = ? AND reviews_claimed < reviews_requested", requestID, models.RequestStatusOpen).
		UpdateColumn("reviews_claimed", gorm.Expr("reviews_claimed + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrClaimCapReached
	}
	return nil
}

func (r *RequestRepositoryImpl) DecrementClaimed(db *gorm.DB, requestID string) error {
	return db.Model(&models.ReviewRequest{}).
		Where("id = ? AND reviews_claimed > 0", requestID).
		UpdateColumn("reviews_claimed", gorm.Expr("reviews_claimed - 1")).Error
}

func (r *RequestRepositoryImpl) IncrementCompleted(db *gorm.DB, requestID string) error {
	result := db.Model(&models.ReviewRequest{}).
		Where("id = ? AND reviews_completed < reviews_claimed", requestID).
		UpdateColumn("reviews_completed", gorm.Expr("reviews_completed + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRequestClosed
	}
	return nil
}

func (r *RequestRepositoryImpl) MarkCompletedIfFinished(db *gorm.DB, requestID string) error {
	return db.Model(&models.ReviewRequest{}).
		Where("id = ? AND status = ? AND reviews_completed >= reviews_requested", requestID, models.RequestStatusOpen).
		UpdateColumn("status", models.RequestStatusCompleted).Error
}

func (r *RequestRepositoryImpl) UpdateStatus(db *gorm.DB, requestID string, status models.RequestStatus) error {
	return db.Model(&models.ReviewRequest{}).
		Where("id = ?", requestID).
		UpdateColumn("status", status).Error
}
