package repositories

import (
	"errors"
	"time"

	"sparkreview_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrSlotNotFound  = errors.New("review slot not found")
	ErrSlotNotClaimed = errors.New("slot was claimed by someone else")
)

type SlotRepository interface {
	CreateBatch(db *gorm.DB, slots []*models.ReviewSlot) error
	FindByID(db *gorm.DB, id string) (*models.ReviewSlot, error)
	FindByRequest(db *gorm.DB, requestID string) ([]models.ReviewSlot, error)
	FindByReviewer(db *gorm.DB, reviewerID string, limit, offset int) ([]models.ReviewSlot, int64, error)
	FindFirstAvailable(db *gorm.DB, requestID string) (*models.ReviewSlot, error)
	Update(db *gorm.DB, slot *models.ReviewSlot) error

	// ClaimAvailable performs the compare-and-swap half of a claim: the slot
	// moves to claimed only if it is still available when the UPDATE runs.
	// Returns ErrSlotNotClaimed when the race was lost.
	ClaimAvailable(db *gorm.DB, slotID, reviewerID string, deadline time.Time) error

	// Deadline scans for the sweeper. Each returns slots whose deadline has
	// elapsed at the given instant.
	FindExpiredClaims(db *gorm.DB, now time.Time, limit int) ([]models.ReviewSlot, error)
	FindAutoAcceptDue(db *gorm.DB, now time.Time, limit int) ([]models.ReviewSlot, error)
	FindExpiredDisputes(db *gorm.DB, now time.Time, limit int) ([]models.ReviewSlot, error)

	FindNonTerminalByRequest(db *gorm.DB, requestID string) ([]models.ReviewSlot, error)
	FindByPaymentIntent(db *gorm.DB, intentID string) (*models.ReviewSlot, error)
}

type SlotRepositoryImpl struct{}

func NewSlotRepository() SlotRepository {
	return &SlotRepositoryImpl{}
}

func (r *SlotRepositoryImpl) CreateBatch(db *gorm.DB, slots []*models.ReviewSlot) error {
	return db.Create(slots).Error
}

func (r *SlotRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.ReviewSlot, error) {
	var slot models.ReviewSlot
	if err := db.First(&slot, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &slot, nil
}

func (r *SlotRepositoryImpl) FindByRequest(db *gorm.DB, requestID string) ([]models.ReviewSlot, error) {
	var slots []models.ReviewSlot
	err := db.Where("request_id = ?", requestID).Order("created_at").Find(&slots).Error
	return slots, err
}

func (r *SlotRepositoryImpl) FindByReviewer(db *gorm.DB, reviewerID string, limit, offset int) ([]models.ReviewSlot, int64, error) {
	var slots []models.ReviewSlot
	var total int64

	query := db.Model(&models.ReviewSlot{}).Where("reviewer_id = ?", reviewerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&slots).Error; err != nil {
		return nil, 0, err
	}
	return slots, total, nil
}

func (r *SlotRepositoryImpl) FindFirstAvailable(db *gorm.DB, requestID string) (*models.ReviewSlot, error) {
	var slot models.ReviewSlot
	err := db.Where("request_id = ? AND status = ?", requestID, models.SlotStatusAvailable).
		Order("created_at").First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &slot, nil
}

func (r *SlotRepositoryImpl) Update(db *gorm.DB, slot *models.ReviewSlot) error {
	return db.Save(slot).Error
}

func (r *SlotRepositoryImpl) ClaimAvailable(db *gorm.DB, slotID, reviewerID string, deadline time.Time) error {
	now := time.Now()
	result := db.Model(&models.ReviewSlot{}).
		Where("id = ? AND status = ?", slotID, models.SlotStatusAvailable).
		Updates(map[string]interface{}{
			"status":         models.SlotStatusClaimed,
			"reviewer_id":    reviewerID,
			"claimed_at":     now,
			"claim_deadline": deadline,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSlotNotClaimed
	}
	return nil
}

func (r *SlotRepositoryImpl) FindExpiredClaims(db *gorm.DB, now time.Time, limit int) ([]models.ReviewSlot, error) {
	var slots []models.ReviewSlot
	err := db.Where("status = ? AND claim_deadline < ?", models.SlotStatusClaimed, now).
		Order("claim_deadline").Limit(limit).Find(&slots).Error
	return slots, err
}

func (r *SlotRepositoryImpl) FindAutoAcceptDue(db *gorm.DB, now time.Time, limit int) ([]models.ReviewSlot, error) {
	var slots []models.ReviewSlot
	err := db.Where("status = ? AND auto_accept_at < ?", models.SlotStatusSubmitted, now).
		Order("auto_accept_at").Limit(limit).Find(&slots).Error
	return slots, err
}

func (r *SlotRepositoryImpl) FindExpiredDisputes(db *gorm.DB, now time.Time, limit int) ([]models.ReviewSlot, error) {
	var slots []models.ReviewSlot
	err := db.Where("status = ? AND dispute_status = ? AND dispute_deadline < ?",
		models.SlotStatusDisputed, models.DisputeStatusOpen, now).
		Order("dispute_deadline").Limit(limit).Find(&slots).Error
	return slots, err
}

func (r *SlotRepositoryImpl) FindNonTerminalByRequest(db *gorm.DB, requestID string) ([]models.ReviewSlot, error) {
	var slots []models.ReviewSlot
	err := db.Where("request_id = ? AND status NOT IN ?", requestID, []models.SlotStatus{
		models.SlotStatusAccepted,
		models.SlotStatusRejected,
		models.SlotStatusCancelled,
	}).Find(&slots).Error
	return slots, err
}

func (r *SlotRepositoryImpl) FindByPaymentIntent(db *gorm.DB, intentID string) (*models.ReviewSlot, error) {
	var slot models.ReviewSlot
	if err := db.First(&slot, "payment_intent_id = ?", intentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &slot, nil
}
