package services

import (
	"time"

	"sparkreview_backend/internal/logger"
	"sparkreview_backend/internal/models"
	"sparkreview_backend/internal/repositories"
	"sparkreview_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// SystemActor marks transitions driven by the sweeper rather than a user.
const SystemActor = "system"

// LifecycleService is the slot state machine:
//
//	available -> claimed -> submitted -> accepted | rejected
//	rejected  -> disputed -> accepted | rejected (final)
//	claimed   -> available (abandonment, after the claim deadline)
//	any non-terminal -> cancelled (request-level cancellation)
//
// Every transition runs as one transaction: slot state, ledger appends and
// request counters commit together or not at all. Notifications go out after
// commit and never roll a transition back.
type LifecycleService interface {
	Claim(slotID, reviewerID string) (*models.ReviewSlot, error)
	Submit(slotID, reviewerID, content string) (*models.ReviewSlot, error)
	Accept(slotID, byUserID string, rating *int, acceptanceType models.AcceptanceType) (*models.ReviewSlot, error)
	Reject(slotID, byUserID, reason, notes string) (*models.ReviewSlot, error)
	Abandon(slotID string) (*models.ReviewSlot, error)
	CancelRequest(requestID, byUserID string) error

	// ClaimTx and AcceptTx are the transactional cores of Claim and Accept,
	// exposed for the claim coordinator and the dispute resolver, which
	// compose them into their own transactions.
	ClaimTx(tx *gorm.DB, slotID, reviewerID string) (*models.ReviewSlot, error)
	AcceptTx(tx *gorm.DB, slotID, byUserID string, rating *int, acceptanceType models.AcceptanceType) (*models.ReviewSlot, error)
}

type lifecycleService struct {
	db            *gorm.DB
	slotRepo      repositories.SlotRepository
	requestRepo   repositories.RequestRepository
	userRepo      repositories.UserRepository
	appRepo       repositories.ApplicationRepository
	sparks        SparksService
	escrow        EscrowService
	notifier      NotificationService
	claimTimeout  time.Duration
	autoAccept    time.Duration
	disputeWindow time.Duration
}

func NewLifecycleService(
	db *gorm.DB,
	slotRepo repositories.SlotRepository,
	requestRepo repositories.RequestRepository,
	userRepo repositories.UserRepository,
	appRepo repositories.ApplicationRepository,
	sparks SparksService,
	escrow EscrowService,
	notifier NotificationService,
	claimTimeout, autoAccept, disputeWindow time.Duration,
) LifecycleService {
	return &lifecycleService{
		db:            db,
		slotRepo:      slotRepo,
		requestRepo:   requestRepo,
		userRepo:      userRepo,
		appRepo:       appRepo,
		sparks:        sparks,
		escrow:        escrow,
		notifier:      notifier,
		claimTimeout:  claimTimeout,
		autoAccept:    autoAccept,
		disputeWindow: disputeWindow,
	}
}

// ---------------- Claim ----------------

func (s *lifecycleService) Claim(slotID, reviewerID string) (*models.ReviewSlot, error) {
	var slot *models.ReviewSlot
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		slot, err = s.ClaimTx(tx, slotID, reviewerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.SlotEvent(repositories.NotificationTypeSlotClaimed, slot, "Your request has a new reviewer")
	return slot, nil
}

func (s *lifecycleService) ClaimTx(tx *gorm.DB, slotID, reviewerID string) (*models.ReviewSlot, error) {
	slot, err := s.slotRepo.FindByID(tx, slotID)
	if err != nil {
		return nil, apperrors.ErrNotFound(err)
	}
	if slot.Status != models.SlotStatusAvailable {
		return nil, apperrors.ErrSlotUnavailable("slot is no longer available")
	}

	request, err := s.requestRepo.FindByID(tx, slot.RequestID)
	if err != nil {
		return nil, apperrors.ErrNotFound(err)
	}
	if request.OwnerID == reviewerID {
		return nil, apperrors.ErrInvalidUserRole
	}

	// Claim-cap gate first: the conditional counter bump serializes
	// concurrent claims per request. If the slot CAS below fails the
	// rollback reverts the counter.
	if err := s.requestRepo.TryIncrementClaimed(tx, slot.RequestID); err != nil {
		if apperrors.Is(err, repositories.ErrClaimCapReached) {
			return nil, apperrors.ErrSlotUnavailable("review request has no open claim capacity")
		}
		return nil, err
	}

	deadline := time.Now().Add(s.claimTimeout)
	if err := s.slotRepo.ClaimAvailable(tx, slot.ID, reviewerID, deadline); err != nil {
		if apperrors.Is(err, repositories.ErrSlotNotClaimed) {
			return nil, apperrors.ErrSlotUnavailable("slot was claimed by another reviewer")
		}
		return nil, err
	}

	slot, err = s.slotRepo.FindByID(tx, slot.ID)
	if err != nil {
		return nil, err
	}

	logger.TransitionLog(slot.ID, string(models.SlotStatusAvailable), string(models.SlotStatusClaimed), reviewerID)
	return slot, nil
}

// ---------------- Submit ----------------

func (s *lifecycleService) Submit(slotID, reviewerID, content string) (*models.ReviewSlot, error) {
	var slot *models.ReviewSlot
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		slot, err = s.slotRepo.FindByID(tx, slotID)
		if err != nil {
			return apperrors.ErrNotFound(err)
		}
		if slot.Status != models.SlotStatusClaimed {
			return apperrors.ErrInvalidState("lifecycle", "only a claimed slot can receive a submission",
				string(models.SlotStatusClaimed), string(slot.Status))
		}
		if slot.ReviewerID == nil || *slot.ReviewerID != reviewerID {
			return apperrors.ErrInsufficientPermissions
		}
		now := time.Now()
		if slot.ClaimDeadline != nil && now.After(*slot.ClaimDeadline) {
			return apperrors.ErrDeadlinePassed("lifecycle", "claim deadline has passed; the slot is due to be reclaimed")
		}

		autoAcceptAt := now.Add(s.autoAccept)
		slot.Status = models.SlotStatusSubmitted
		slot.SubmittedAt = &now
		slot.AutoAcceptAt = &autoAcceptAt
		slot.ReviewContent = content
		if err := s.slotRepo.Update(tx, slot); err != nil {
			return err
		}

		if _, err := s.sparks.Record(tx, reviewerID, models.SparksActionReviewSubmitted, PointsSubmission, &slot.ID); err != nil {
			return err
		}

		reviewer, err := s.userRepo.FindByID(tx, reviewerID)
		if err != nil {
			return err
		}
		if err := s.sparks.AdvanceStreak(tx, reviewer, now); err != nil {
			return err
		}

		logger.TransitionLog(slot.ID, string(models.SlotStatusClaimed), string(models.SlotStatusSubmitted), reviewerID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.SlotEvent(repositories.NotificationTypeReviewSubmitted, slot, "A review was submitted for your request")
	return slot, nil
}

// ---------------- Accept ----------------

func (s *lifecycleService) Accept(slotID, byUserID string, rating *int, acceptanceType models.AcceptanceType) (*models.ReviewSlot, error) {
	var slot *models.ReviewSlot
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		slot, err = s.AcceptTx(tx, slotID, byUserID, rating, acceptanceType)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.SlotEvent(repositories.NotificationTypeReviewAccepted, slot, "Your review was accepted")
	return slot, nil
}

func (s *lifecycleService) AcceptTx(tx *gorm.DB, slotID, byUserID string, rating *int, acceptanceType models.AcceptanceType) (*models.ReviewSlot, error) {
	slot, err := s.slotRepo.FindByID(tx, slotID)
	if err != nil {
		return nil, apperrors.ErrNotFound(err)
	}

	expected := models.SlotStatusSubmitted
	if acceptanceType == models.AcceptanceDispute {
		expected = models.SlotStatusDisputed
	}
	if slot.Status != expected {
		return nil, apperrors.ErrInvalidState("lifecycle", "slot is not awaiting acceptance",
			string(expected), string(slot.Status))
	}

	request, err := s.requestRepo.FindByID(tx, slot.RequestID)
	if err != nil {
		return nil, apperrors.ErrNotFound(err)
	}
	if acceptanceType == models.AcceptanceManual && request.OwnerID != byUserID {
		return nil, apperrors.ErrInsufficientPermissions
	}

	now := time.Now()
	slot.Status = models.SlotStatusAccepted
	slot.ReviewedAt = &now
	slot.AcceptanceType = &acceptanceType
	if acceptanceType == models.AcceptanceManual {
		slot.Rating = rating
	}

	var action string
	var points int
	switch acceptanceType {
	case models.AcceptanceManual:
		if rating == nil || *rating < 1 || *rating > 5 {
			return nil, apperrors.ValidationError("rating must be between 1 and 5")
		}
		action, points = models.SparksActionReviewAccepted, s.sparks.AcceptanceCredit(*rating)
	case models.AcceptanceAuto:
		action, points = models.SparksActionReviewAutoAccepted, PointsAutoAccept
	case models.AcceptanceDispute:
		action, points = models.SparksActionDisputeReviewerFavored, PointsDisputeReviewer
	}

	if slot.ReviewerID == nil {
		return nil, apperrors.ErrInvalidState("lifecycle", "accepted slot has no reviewer",
			string(expected), string(slot.Status))
	}
	if _, err := s.sparks.Record(tx, *slot.ReviewerID, action, points, &slot.ID); err != nil {
		return nil, err
	}

	reviewer, err := s.userRepo.FindByID(tx, *slot.ReviewerID)
	if err != nil {
		return nil, err
	}
	if err := s.escrow.Release(tx, slot, reviewer.PayoutAccountID); err != nil {
		return nil, err
	}

	if err := s.slotRepo.Update(tx, slot); err != nil {
		return nil, err
	}

	// The rejection that preceded a dispute never incremented the completed
	// counter, so the dispute path counts the slot here like any other.
	if err := s.requestRepo.IncrementCompleted(tx, slot.RequestID); err != nil {
		return nil, err
	}
	if err := s.requestRepo.MarkCompletedIfFinished(tx, slot.RequestID); err != nil {
		return nil, err
	}

	logger.TransitionLog(slot.ID, string(expected), string(models.SlotStatusAccepted), byUserID)
	return slot, nil
}

// ---------------- Reject ----------------

func (s *lifecycleService) Reject(slotID, byUserID, reason, notes string) (*models.ReviewSlot, error) {
	var slot *models.ReviewSlot
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		slot, err = s.slotRepo.FindByID(tx, slotID)
		if err != nil {
			return apperrors.ErrNotFound(err)
		}
		if slot.Status != models.SlotStatusSubmitted {
			return apperrors.ErrInvalidState("lifecycle", "only a submitted review can be rejected",
				string(models.SlotStatusSubmitted), string(slot.Status))
		}

		request, err := s.requestRepo.FindByID(tx, slot.RequestID)
		if err != nil {
			return apperrors.ErrNotFound(err)
		}
		if request.OwnerID != byUserID {
			return apperrors.ErrInsufficientPermissions
		}

		now := time.Now()
		disputeDeadline := now.Add(s.disputeWindow)
		slot.Status = models.SlotStatusRejected
		slot.RejectionReason = reason
		slot.RejectionNotes = notes
		slot.ReviewedAt = &now
		slot.DisputeDeadline = &disputeDeadline

		if err := s.escrow.RefundIfEscrowed(tx, slot); err != nil {
			return err
		}

		if slot.ReviewerID == nil {
			return apperrors.ErrInvalidState("lifecycle", "rejected slot has no reviewer",
				string(models.SlotStatusSubmitted), string(slot.Status))
		}
		if _, err := s.sparks.Record(tx, *slot.ReviewerID, models.SparksActionReviewRejected, PointsRejection, &slot.ID); err != nil {
			return err
		}

		if err := s.slotRepo.Update(tx, slot); err != nil {
			return err
		}

		logger.TransitionLog(slot.ID, string(models.SlotStatusSubmitted), string(models.SlotStatusRejected), byUserID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.SlotEvent(repositories.NotificationTypeReviewRejected, slot, "Your review was rejected")
	return slot, nil
}

// ---------------- Abandon ----------------

func (s *lifecycleService) Abandon(slotID string) (*models.ReviewSlot, error) {
	var slot *models.ReviewSlot
	var abandonedBy string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		slot, err = s.slotRepo.FindByID(tx, slotID)
		if err != nil {
			return apperrors.ErrNotFound(err)
		}
		if slot.Status != models.SlotStatusClaimed {
			return apperrors.ErrInvalidState("lifecycle", "only a claimed slot can be abandoned",
				string(models.SlotStatusClaimed), string(slot.Status))
		}
		if slot.ClaimDeadline == nil || time.Now().Before(*slot.ClaimDeadline) {
			return apperrors.ErrInvalidState("lifecycle", "claim deadline has not passed yet",
				string(models.SlotStatusClaimed), string(slot.Status))
		}
		if slot.ReviewerID == nil {
			return apperrors.ErrInvalidState("lifecycle", "claimed slot has no reviewer",
				string(models.SlotStatusClaimed), string(slot.Status))
		}
		abandonedBy = *slot.ReviewerID

		penalty, err := s.sparks.AbandonPenalty(tx, abandonedBy)
		if err != nil {
			return err
		}
		if _, err := s.sparks.Record(tx, abandonedBy, models.SparksActionSlotAbandoned, penalty, &slot.ID); err != nil {
			return err
		}

		// Back to the pool: the slot becomes claimable again and the
		// request regains capacity.
		slot.Status = models.SlotStatusAvailable
		slot.ReviewerID = nil
		slot.ClaimedAt = nil
		slot.ClaimDeadline = nil
		if err := s.slotRepo.Update(tx, slot); err != nil {
			return err
		}
		if err := s.requestRepo.DecrementClaimed(tx, slot.RequestID); err != nil {
			return err
		}

		logger.TransitionLog(slot.ID, string(models.SlotStatusClaimed), string(models.SlotStatusAvailable), SystemActor)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.UserEvent(repositories.NotificationTypeSlotAbandoned, abandonedBy, slot,
		"Your claimed review slot expired and was returned to the pool")
	return slot, nil
}

// ---------------- Cancel ----------------

// CancelRequest cancels every non-terminal slot of the request in one
// transaction, so a request can never end up half-cancelled. Escrowed
// payments are returned to the requester; no reputation entries are written.
func (s *lifecycleService) CancelRequest(requestID, byUserID string) error {
	var cancelled []models.ReviewSlot
	err := s.db.Transaction(func(tx *gorm.DB) error {
		request, err := s.requestRepo.FindByID(tx, requestID)
		if err != nil {
			return apperrors.ErrNotFound(err)
		}
		if request.OwnerID != byUserID {
			return apperrors.ErrInsufficientPermissions
		}
		if request.Status != models.RequestStatusOpen {
			return apperrors.ErrInvalidState("lifecycle", "only an open request can be cancelled",
				string(models.RequestStatusOpen), string(request.Status))
		}

		slots, err := s.slotRepo.FindNonTerminalByRequest(tx, requestID)
		if err != nil {
			return err
		}
		for i := range slots {
			slot := &slots[i]
			if err := s.escrow.RefundIfEscrowed(tx, slot); err != nil {
				return err
			}
			from := slot.Status
			slot.Status = models.SlotStatusCancelled
			if err := s.slotRepo.Update(tx, slot); err != nil {
				return err
			}
			logger.TransitionLog(slot.ID, string(from), string(models.SlotStatusCancelled), byUserID)
		}
		cancelled = slots

		if err := s.appRepo.ExpirePendingByRequest(tx, requestID); err != nil {
			return err
		}
		if err := s.requestRepo.UpdateStatus(tx, requestID, models.RequestStatusCancelled); err != nil {
			return err
		}
		return s.requestRepo.SoftDelete(tx, requestID)
	})
	if err != nil {
		return err
	}

	for i := range cancelled {
		slot := cancelled[i]
		if slot.ReviewerID != nil {
			s.notifier.UserEvent(repositories.NotificationTypeSlotCancelled, *slot.ReviewerID, &slot,
				"A request you were reviewing was cancelled")
		}
	}
	return nil
}
