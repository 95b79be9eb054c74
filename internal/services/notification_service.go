package services

import (
	"sparkreview_backend/internal/email"
	"sparkreview_backend/internal/logger"
	"sparkreview_backend/internal/models"
	"sparkreview_backend/internal/repositories"

	"gorm.io/gorm"
)

// NotificationService is fire-and-forget: lifecycle transitions call it after
// commit and a delivery failure only gets logged, never propagated.
type NotificationService interface {
	// SlotEvent notifies both sides of a slot (request owner and reviewer).
	SlotEvent(eventType string, slot *models.ReviewSlot, message string)

	// UserEvent notifies a single user about a slot.
	UserEvent(eventType, userID string, slot *models.ReviewSlot, message string)

	// RequestEvent notifies the owner of a request.
	RequestEvent(eventType, requestID, actorID, message string)

	GetUserNotifications(userID string, page, pageSize int) ([]models.Notification, int64, error)
	MarkAsRead(userID, notificationID string) error
	MarkAllAsRead(userID string) error
	UnreadCount(userID string) (int64, error)
}

type notificationService struct {
	db               *gorm.DB
	notificationRepo repositories.NotificationRepository
	requestRepo      repositories.RequestRepository
	userRepo         repositories.UserRepository
	emailProvider    email.Provider
}

func NewNotificationService(
	db *gorm.DB,
	notificationRepo repositories.NotificationRepository,
	requestRepo repositories.RequestRepository,
	userRepo repositories.UserRepository,
	emailProvider email.Provider,
) NotificationService {
	return &notificationService{
		db:               db,
		notificationRepo: notificationRepo,
		requestRepo:      requestRepo,
		userRepo:         userRepo,
		emailProvider:    emailProvider,
	}
}

func (s *notificationService) SlotEvent(eventType string, slot *models.ReviewSlot, message string) {
	go func() {
		recipients := make([]string, 0, 2)
		if request, err := s.requestRepo.FindByID(s.db, slot.RequestID); err == nil {
			recipients = append(recipients, request.OwnerID)
		}
		if slot.ReviewerID != nil {
			recipients = append(recipients, *slot.ReviewerID)
		}
		s.deliver(eventType, slot.ID, slot.RequestID, message, recipients)
	}()
}

func (s *notificationService) UserEvent(eventType, userID string, slot *models.ReviewSlot, message string) {
	go func() {
		s.deliver(eventType, slot.ID, slot.RequestID, message, []string{userID})
	}()
}

func (s *notificationService) RequestEvent(eventType, requestID, actorID, message string) {
	go func() {
		request, err := s.requestRepo.FindByID(s.db, requestID)
		if err != nil {
			logger.Warn("notification skipped, request lookup failed", "request_id", requestID, "error", err.Error())
			return
		}
		s.deliver(eventType, "", requestID, message, []string{request.OwnerID})
	}()
}

func (s *notificationService) deliver(eventType, slotID, requestID, message string, recipients []string) {
	if len(recipients) == 0 {
		return
	}

	if err := s.notificationRepo.CreateSlotNotification(
		s.db, eventType, eventTitle(eventType), message, slotID, requestID, recipients,
	); err != nil {
		logger.Warn("failed to persist notification", "type", eventType, "slot_id", slotID, "error", err.Error())
	}

	for _, userID := range recipients {
		user, err := s.userRepo.FindByID(s.db, userID)
		if err != nil {
			continue
		}
		if err := s.emailProvider.Send(user.Email, eventTitle(eventType), message); err != nil {
			logger.Warn("failed to send notification email", "type", eventType, "user_id", userID, "error", err.Error())
		}
	}
}

func eventTitle(eventType string) string {
	switch eventType {
	case repositories.NotificationTypeSlotClaimed:
		return "Slot claimed"
	case repositories.NotificationTypeReviewSubmitted:
		return "Review submitted"
	case repositories.NotificationTypeReviewAccepted:
		return "Review accepted"
	case repositories.NotificationTypeReviewRejected:
		return "Review rejected"
	case repositories.NotificationTypeSlotAbandoned:
		return "Slot expired"
	case repositories.NotificationTypeSlotCancelled:
		return "Request cancelled"
	case repositories.NotificationTypeDisputeOpened:
		return "Dispute opened"
	case repositories.NotificationTypeDisputeResolved:
		return "Dispute resolved"
	case repositories.NotificationTypeNewApplication:
		return "New application"
	case repositories.NotificationTypeAppDecided:
		return "Application decided"
	case repositories.NotificationTypePaymentEscrowed:
		return "Payment escrowed"
	default:
		return "Notification"
	}
}

func (s *notificationService) GetUserNotifications(userID string, page, pageSize int) ([]models.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.notificationRepo.FindByUser(s.db, userID, pageSize, (page-1)*pageSize)
}

func (s *notificationService) MarkAsRead(userID, notificationID string) error {
	return s.notificationRepo.MarkAsRead(s.db, userID, notificationID)
}

func (s *notificationService) MarkAllAsRead(userID string) error {
	return s.notificationRepo.MarkAllAsRead(s.db, userID)
}

func (s *notificationService) UnreadCount(userID string) (int64, error) {
	return s.notificationRepo.UnreadCount(s.db, userID)
}
