package repositories

import (
	"errors"
	"time"

	"sparkreview_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrApplicationNotFound = errors.New("slot application not found")
	ErrApplicationDecided  = errors.New("slot application already decided")
)

type ApplicationRepository interface {
	Create(db *gorm.DB, application *models.SlotApplication) error
	FindByID(db *gorm.DB, id string) (*models.SlotApplication, error)
	FindByRequest(db *gorm.DB, requestID string) ([]models.SlotApplication, error)
	FindByApplicant(db *gorm.DB, applicantID string, limit, offset int) ([]models.SlotApplication, int64, error)

	// HasActiveApplication reports whether a non-terminal application exists
	// for the (applicant, request) pair.
	HasActiveApplication(db *gorm.DB, applicantID, requestID string) (bool, error)

	// Decide moves a pending application into a terminal state as a
	// conditional UPDATE; ErrApplicationDecided when it was no longer pending.
	Decide(db *gorm.DB, applicationID string, status models.ApplicationStatus, decidedBy string, slotID *string) error

	// ExpirePendingByRequest terminates all pending applications when the
	// request closes or gets cancelled.
	ExpirePendingByRequest(db *gorm.DB, requestID string) error
}

type ApplicationRepositoryImpl struct{}

func NewApplicationRepository() ApplicationRepository {
	return &ApplicationRepositoryImpl{}
}

func (r *ApplicationRepositoryImpl) Create(db *gorm.DB, application *models.SlotApplication) error {
	return db.Create(application).Error
}

func (r *ApplicationRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.SlotApplication, error) {
	var application models.SlotApplication
	if err := db.First(&application, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return &application, nil
}

func (r *ApplicationRepositoryImpl) FindByRequest(db *gorm.DB, requestID string) ([]models.SlotApplication, error) {
	var applications []models.SlotApplication
	err := db.Where("request_id = ?", requestID).Order("created_at").Find(&applications).Error
	return applications, err
}

func (r *ApplicationRepositoryImpl) FindByApplicant(db *gorm.DB, applicantID string, limit, offset int) ([]models.SlotApplication, int64, error) {
	var applications []models.SlotApplication
	var total int64

	query := db.Model(&models.SlotApplication{}).Where("applicant_id = ?", applicantID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&applications).Error; err != nil {
		return nil, 0, err
	}
	return applications, total, nil
}

func (r *ApplicationRepositoryImpl) HasActiveApplication(db *gorm.DB, applicantID, requestID string) (bool, error) {
	var count int64
	err := db.Model(&models.SlotApplication{}).
		Where("applicant_id = ? AND request_id = ? AND status = ?",
			applicantID, requestID, models.ApplicationStatusPending).
		Count(&count).Error
	return count > 0, err
}

func (r *ApplicationRepositoryImpl) Decide(db *gorm.DB, applicationID string, status models.ApplicationStatus, decidedBy string, slotID *string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":     status,
		"decided_at": now,
		"decided_by": decidedBy,
	}
	if slotID != nil {
		updates["slot_id"] = *slotID
	}
	result := db.Model(&models.SlotApplication{}).
		Where("id = ? AND status = ?", applicationID, models.ApplicationStatusPending).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrApplicationDecided
	}
	return nil
}

func (r *ApplicationRepositoryImpl) ExpirePendingByRequest(db *gorm.DB, requestID string) error {
	return db.Model(&models.SlotApplication{}).
		Where("request_id = ? AND status = ?", requestID, models.ApplicationStatusPending).
		UpdateColumn("status", models.ApplicationStatusExpired).Error
}
