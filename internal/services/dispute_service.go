package services

import (
	"time"

	"sparkreview_backend/internal/logger"
	"sparkreview_backend/internal/models"
	"sparkreview_backend/internal/repositories"
	"sparkreview_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// DisputeService is the post-rejection sub-flow. A rejection opens a dispute
// window; within it the reviewer may escalate, and an adjudicator resolves.
// The ledger stays append-only on every outcome: a reviewer-favored
// resolution does not erase the earlier rejection debit, the +50 credit just
// lands on top.
type DisputeService interface {
	Open(slotID, reviewerID, note string) (*models.ReviewSlot, error)
	Resolve(slotID, adjudicatorID string, outcome models.DisputeOutcome) (*models.ReviewSlot, error)

	// ResolveExpired applies the configured default outcome to a dispute
	// whose window elapsed without a verdict. Called by the sweeper.
	ResolveExpired(slotID string) (*models.ReviewSlot, error)
}

type disputeService struct {
	db             *gorm.DB
	slotRepo       repositories.SlotRepository
	userRepo       repositories.UserRepository
	sparks         SparksService
	escrow         EscrowService
	lifecycle      LifecycleService
	notifier       NotificationService
	expiredOutcome models.DisputeOutcome
}

func NewDisputeService(
	db *gorm.DB,
	slotRepo repositories.SlotRepository,
	userRepo repositories.UserRepository,
	sparks SparksService,
	escrow EscrowService,
	lifecycle LifecycleService,
	notifier NotificationService,
	expiredOutcome models.DisputeOutcome,
) DisputeService {
	return &disputeService{
		db:             db,
		slotRepo:       slotRepo,
		userRepo:       userRepo,
		sparks:         sparks,
		escrow:         escrow,
		lifecycle:      lifecycle,
		notifier:       notifier,
		expiredOutcome: expiredOutcome,
	}
}

func (s *disputeService) Open(slotID, reviewerID, note string) (*models.ReviewSlot, error) {
	var slot *models.ReviewSlot
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		slot, err = s.slotRepo.FindByID(tx, slotID)
		if err != nil {
			return apperrors.ErrNotFound(err)
		}
		if slot.Status != models.SlotStatusRejected {
			return apperrors.ErrInvalidState("disputes", "only a rejected review can be disputed",
				string(models.SlotStatusRejected), string(slot.Status))
		}
		if slot.ReviewerID == nil || *slot.ReviewerID != reviewerID {
			return apperrors.ErrInsufficientPermissions
		}
		if slot.DisputeStatus != models.DisputeStatusNone {
			return apperrors.ErrConflict(nil, "disputes", "dispute already opened for this slot")
		}
		now := time.Now()
		if slot.DisputeDeadline == nil || now.After(*slot.DisputeDeadline) {
			return apperrors.ErrDeadlinePassed("disputes", "dispute window has closed")
		}

		slot.Status = models.SlotStatusDisputed
		slot.DisputeStatus = models.DisputeStatusOpen
		slot.DisputeNote = note
		slot.DisputeOpenedAt = &now
		if err := s.slotRepo.Update(tx, slot); err != nil {
			return err
		}

		logger.TransitionLog(slot.ID, string(models.SlotStatusRejected), string(models.SlotStatusDisputed), reviewerID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.SlotEvent(repositories.NotificationTypeDisputeOpened, slot, "The reviewer disputed your rejection")
	return slot, nil
}

func (s *disputeService) Resolve(slotID, adjudicatorID string, outcome models.DisputeOutcome) (*models.ReviewSlot, error) {
	var slot *models.ReviewSlot
	err := s.db.Transaction(func(tx *gorm.DB) error {
		adjudicator, err := s.userRepo.FindByID(tx, adjudicatorID)
		if err != nil {
			return apperrors.ErrNotFound(err)
		}
		if adjudicator.Role != models.UserRoleAdmin {
			return apperrors.ErrInsufficientPermissions
		}
		slot, err = s.resolveTx(tx, slotID, adjudicatorID, outcome, models.DisputeStatusResolved)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.SlotEvent(repositories.NotificationTypeDisputeResolved, slot, "Your dispute was resolved")
	return slot, nil
}

func (s *disputeService) ResolveExpired(slotID string) (*models.ReviewSlot, error) {
	var slot *models.ReviewSlot
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		slot, err = s.resolveTx(tx, slotID, SystemActor, s.expiredOutcome, models.DisputeStatusExpired)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.SlotEvent(repositories.NotificationTypeDisputeResolved, slot, "Your dispute expired and was closed")
	return slot, nil
}

func (s *disputeService) resolveTx(tx *gorm.DB, slotID, resolvedBy string, outcome models.DisputeOutcome, finalStatus models.DisputeStatus) (*models.ReviewSlot, error) {
	slot, err := s.slotRepo.FindByID(tx, slotID)
	if err != nil {
		return nil, apperrors.ErrNotFound(err)
	}
	if slot.Status != models.SlotStatusDisputed || slot.DisputeStatus != models.DisputeStatusOpen {
		return nil, apperrors.ErrInvalidState("disputes", "no open dispute on this slot",
			string(models.SlotStatusDisputed), string(slot.Status))
	}

	switch outcome {
	case models.DisputeOutcomeReviewerFavored:
		// Re-runs the acceptance transition; the +50 credit is written by
		// the acceptance path with acceptance_type=dispute.
		slot, err = s.lifecycle.AcceptTx(tx, slotID, resolvedBy, nil, models.AcceptanceDispute)
		if err != nil {
			return nil, err
		}
	case models.DisputeOutcomeRequesterFavored:
		slot.Status = models.SlotStatusRejected
		// A capture confirmed after the rejection leaves the slot escrowed
		// while the dispute runs; the verdict is the last transition, so the
		// money goes back to the requester here.
		if err := s.escrow.RefundIfEscrowed(tx, slot); err != nil {
			return nil, err
		}
		if slot.ReviewerID != nil {
			if _, err := s.sparks.Record(tx, *slot.ReviewerID, models.SparksActionDisputeRequesterFavored, PointsDisputeRequester, &slot.ID); err != nil {
				return nil, err
			}
		}
		logger.TransitionLog(slot.ID, string(models.SlotStatusDisputed), string(models.SlotStatusRejected), resolvedBy)
	default:
		return nil, apperrors.ValidationError("unknown dispute outcome")
	}

	slot.DisputeStatus = finalStatus
	slot.DisputeOutcome = &outcome
	slot.DisputeResolvedBy = &resolvedBy
	if err := s.slotRepo.Update(tx, slot); err != nil {
		return nil, err
	}
	return slot, nil
}
