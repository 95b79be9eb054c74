package repositories

import (
	"errors"
	"time"

	"sparkreview_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrLedgerUserNotFound = errors.New("user not found for ledger append")
)

type SparksRepository interface {
	// Append performs the atomic balance read-modify-write: it bumps the
	// user's cached balance, reads the result back and writes the ledger row
	// with BalanceAfter set, all against the caller's transaction. Callers
	// must invoke it inside a transaction so the projection and the ledger
	// row commit together.
	Append(db *gorm.DB, userID, action string, points int, slotID *string) (*models.SparksTransaction, error)

	FindByUser(db *gorm.DB, userID string, limit, offset int) ([]models.SparksTransaction, int64, error)
	LatestBalance(db *gorm.DB, userID string) (int, error)

	// CountActionSince counts ledger rows for a user with the given action
	// code newer than the cutoff. Drives the repeat-offender escalation.
	CountActionSince(db *gorm.DB, userID, action string, since time.Time) (int64, error)

	HasAction(db *gorm.DB, userID, action string) (bool, error)
}

type SparksRepositoryImpl struct{}

func NewSparksRepository() SparksRepository {
	return &SparksRepositoryImpl{}
}

func (r *SparksRepositoryImpl) Append(db *gorm.DB, userID, action string, points int, slotID *string) (*models.SparksTransaction, error) {
	result := db.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("sparks_points", gorm.Expr("sparks_points + ?", points))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrLedgerUserNotFound
	}

	var balance int
	if err := db.Model(&models.User{}).
		Where("id = ?", userID).
		Pluck("sparks_points", &balance).Error; err != nil {
		return nil, err
	}

	txn := &models.SparksTransaction{
		UserID:       userID,
		SlotID:       slotID,
		Action:       action,
		Points:       points,
		BalanceAfter: balance,
		CreatedAt:    time.Now(),
	}
	if err := db.Create(txn).Error; err != nil {
		return nil, err
	}
	return txn, nil
}

func (r *SparksRepositoryImpl) FindByUser(db *gorm.DB, userID string, limit, offset int) ([]models.SparksTransaction, int64, error) {
	var txns []models.SparksTransaction
	var total int64

	query := db.Model(&models.SparksTransaction{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&txns).Error; err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

func (r *SparksRepositoryImpl) LatestBalance(db *gorm.DB, userID string) (int, error) {
	var txn models.SparksTransaction
	err := db.Where("user_id = ?", userID).Order("created_at DESC").First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return txn.BalanceAfter, nil
}

func (r *SparksRepositoryImpl) CountActionSince(db *gorm.DB, userID, action string, since time.Time) (int64, error) {
	var count int64
	err := db.Model(&models.SparksTransaction{}).
		Where("user_id = ? AND action = ? AND created_at > ?", userID, action, since).
		Count(&count).Error
	return count, err
}

func (r *SparksRepositoryImpl) HasAction(db *gorm.DB, userID, action string) (bool, error) {
	var count int64
	err := db.Model(&models.SparksTransaction{}).
		Where("user_id = ? AND action = ?", userID, action).
		Count(&count).Error
	return count > 0, err
}
