package services

import (
	"sparkreview_backend/internal/models"
	"sparkreview_backend/internal/repositories"
	"sparkreview_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// ClaimService arbitrates concurrent demand for slots. A losing caller gets
// SlotUnavailable and must re-query the listing; no alternate slot is ever
// assigned silently.
type ClaimService interface {
	// ClaimSlot picks the first available slot of the request and claims it
	// for the reviewer.
	ClaimSlot(requestID, reviewerID string) (*models.ReviewSlot, error)

	// Apply files an application for the paid/expert flow. At most one
	// non-terminal application may exist per (applicant, request) pair.
	Apply(applicantID string, requestID, pitch string) (*models.SlotApplication, error)

	// AcceptApplication atomically marks the application accepted, assigns
	// the first available slot and claims it for the applicant.
	AcceptApplication(applicationID, byUserID string) (*models.ReviewSlot, error)

	RejectApplication(applicationID, byUserID string) error
	WithdrawApplication(applicationID, applicantID string) error
}

type claimService struct {
	db          *gorm.DB
	slotRepo    repositories.SlotRepository
	requestRepo repositories.RequestRepository
	appRepo     repositories.ApplicationRepository
	lifecycle   LifecycleService
	notifier    NotificationService
}

func NewClaimService(
	db *gorm.DB,
	slotRepo repositories.SlotRepository,
	requestRepo repositories.RequestRepository,
	appRepo repositories.ApplicationRepository,
	lifecycle LifecycleService,
	notifier NotificationService,
) ClaimService {
	return &claimService{
		db:          db,
		slotRepo:    slotRepo,
		requestRepo: requestRepo,
		appRepo:     appRepo,
		lifecycle:   lifecycle,
		notifier:    notifier,
	}
}

func (s *claimService) ClaimSlot(requestID, reviewerID string) (*models.ReviewSlot, error) {
	var slot *models.ReviewSlot
	err := s.db.Transaction(func(tx *gorm.DB) error {
		candidate, err := s.slotRepo.FindFirstAvailable(tx, requestID)
		if err != nil {
			if apperrors.Is(err, repositories.ErrSlotNotFound) {
				return apperrors.ErrSlotUnavailable("no available slot on this request")
			}
			return err
		}
		slot, err = s.lifecycle.ClaimTx(tx, candidate.ID, reviewerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.SlotEvent(repositories.NotificationTypeSlotClaimed, slot, "Your request has a new reviewer")
	return slot, nil
}

func (s *claimService) Apply(applicantID string, requestID, pitch string) (*models.SlotApplication, error) {
	var application *models.SlotApplication
	err := s.db.Transaction(func(tx *gorm.DB) error {
		request, err := s.requestRepo.FindByID(tx, requestID)
		if err != nil {
			return apperrors.ErrNotFound(err)
		}
		if request.Status != models.RequestStatusOpen {
			return apperrors.ErrInvalidState("applications", "request is not open for applications",
				string(models.RequestStatusOpen), string(request.Status))
		}
		if request.OwnerID == applicantID {
			return apperrors.ErrInvalidUserRole
		}

		active, err := s.appRepo.HasActiveApplication(tx, applicantID, requestID)
		if err != nil {
			return err
		}
		if active {
			return apperrors.ErrDuplicateApplication()
		}

		application = &models.SlotApplication{
			RequestID:   requestID,
			ApplicantID: applicantID,
			Pitch:       pitch,
			Status:      models.ApplicationStatusPending,
		}
		return s.appRepo.Create(tx, application)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.RequestEvent(repositories.NotificationTypeNewApplication, requestID, applicantID,
		"A reviewer applied to your request")
	return application, nil
}

func (s *claimService) AcceptApplication(applicationID, byUserID string) (*models.ReviewSlot, error) {
	var slot *models.ReviewSlot
	var applicantID string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		application, err := s.appRepo.FindByID(tx, applicationID)
		if err != nil {
			return apperrors.ErrNotFound(err)
		}
		if application.Status != models.ApplicationStatusPending {
			return apperrors.ErrInvalidState("applications", "application already decided",
				string(models.ApplicationStatusPending), string(application.Status))
		}

		request, err := s.requestRepo.FindByID(tx, application.RequestID)
		if err != nil {
			return apperrors.ErrNotFound(err)
		}
		if request.OwnerID != byUserID {
			return apperrors.ErrInsufficientPermissions
		}

		candidate, err := s.slotRepo.FindFirstAvailable(tx, application.RequestID)
		if err != nil {
			if apperrors.Is(err, repositories.ErrSlotNotFound) {
				return apperrors.ErrSlotUnavailable("no available slot left on this request")
			}
			return err
		}

		slot, err = s.lifecycle.ClaimTx(tx, candidate.ID, application.ApplicantID)
		if err != nil {
			return err
		}
		applicantID = application.ApplicantID

		return s.appRepo.Decide(tx, applicationID, models.ApplicationStatusAccepted, byUserID, &slot.ID)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.UserEvent(repositories.NotificationTypeAppDecided, applicantID, slot,
		"Your application was accepted; the slot is yours")
	return slot, nil
}

func (s *claimService) RejectApplication(applicationID, byUserID string) error {
	return s.decide(applicationID, byUserID, models.ApplicationStatusRejected, true)
}

func (s *claimService) WithdrawApplication(applicationID, applicantID string) error {
	return s.decide(applicationID, applicantID, models.ApplicationStatusWithdrawn, false)
}

func (s *claimService) decide(applicationID, actorID string, status models.ApplicationStatus, actorIsOwner bool) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		application, err := s.appRepo.FindByID(tx, applicationID)
		if err != nil {
			return apperrors.ErrNotFound(err)
		}

		if actorIsOwner {
			request, err := s.requestRepo.FindByID(tx, application.RequestID)
			if err != nil {
				return apperrors.ErrNotFound(err)
			}
			if request.OwnerID != actorID {
				return apperrors.ErrInsufficientPermissions
			}
		} else if application.ApplicantID != actorID {
			return apperrors.ErrInsufficientPermissions
		}

		if err := s.appRepo.Decide(tx, applicationID, status, actorID, nil); err != nil {
			if apperrors.Is(err, repositories.ErrApplicationDecided) {
				return apperrors.ErrInvalidState("applications", "application already decided",
					string(models.ApplicationStatusPending), string(application.Status))
			}
			return err
		}
		return nil
	})
}
