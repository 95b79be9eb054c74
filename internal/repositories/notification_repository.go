package repositories

import (
	"encoding/json"
	"errors"
	"fmt"

	"sparkreview_backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// Notification types emitted by the slot lifecycle.
const (
	NotificationTypeSlotClaimed     = "slot_claimed"
	NotificationTypeReviewSubmitted = "review_submitted"
	NotificationTypeReviewAccepted  = "review_accepted"
	NotificationTypeReviewRejected  = "review_rejected"
	NotificationTypeSlotAbandoned   = "slot_abandoned"
	NotificationTypeSlotCancelled   = "slot_cancelled"
	NotificationTypeDisputeOpened   = "dispute_opened"
	NotificationTypeDisputeResolved = "dispute_resolved"
	NotificationTypeNewApplication  = "new_application"
	NotificationTypeAppDecided      = "application_decided"
	NotificationTypePaymentEscrowed = "payment_escrowed"
)

type NotificationRepository interface {
	Create(db *gorm.DB, notification *models.Notification) error
	FindByUser(db *gorm.DB, userID string, limit, offset int) ([]models.Notification, int64, error)
	MarkAsRead(db *gorm.DB, userID, notificationID string) error
	MarkAllAsRead(db *gorm.DB, userID string) error
	UnreadCount(db *gorm.DB, userID string) (int64, error)

	// CreateSlotNotification is the factory used by the lifecycle service:
	// one row per recipient carrying the slot/request ids as JSON payload.
	CreateSlotNotification(db *gorm.DB, notificationType, title, message, slotID, requestID string, recipients []string) error
}

type NotificationRepositoryImpl struct{}

func NewNotificationRepository() NotificationRepository {
	return &NotificationRepositoryImpl{}
}

func (r *NotificationRepositoryImpl) Create(db *gorm.DB, notification *models.Notification) error {
	return db.Create(notification).Error
}

func (r *NotificationRepositoryImpl) FindByUser(db *gorm.DB, userID string, limit, offset int) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	query := db.Model(&models.Notification{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&notifications).Error; err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (r *NotificationRepositoryImpl) MarkAsRead(db *gorm.DB, userID, notificationID string) error {
	result := db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepositoryImpl) MarkAllAsRead(db *gorm.DB, userID string) error {
	return db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

func (r *NotificationRepositoryImpl) UnreadCount(db *gorm.DB, userID string) (int64, error) {
	var count int64
	err := db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *NotificationRepositoryImpl) CreateSlotNotification(db *gorm.DB, notificationType, title, message, slotID, requestID string, recipients []string) error {
	payload, err := json.Marshal(map[string]string{
		"slot_id":    slotID,
		"request_id": requestID,
	})
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	notifications := make([]*models.Notification, 0, len(recipients))
	for _, userID := range recipients {
		notifications = append(notifications, &models.Notification{
			UserID:  userID,
			Type:    notificationType,
			Title:   title,
			Message: message,
			Data:    datatypes.JSON(payload),
		})
	}
	if len(notifications) == 0 {
		return nil
	}
	return db.Create(notifications).Error
}
