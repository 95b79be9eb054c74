package services

import (
	"context"
	"time"

	"sparkreview_backend/internal/logger"
	"sparkreview_backend/internal/models"
	"sparkreview_backend/internal/payments"
	"sparkreview_backend/internal/repositories"
	"sparkreview_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// EscrowService tracks the per-slot payment sub-ledger:
//
//	none -> pending -> escrowed -> released | refunded
//
// pending is recorded when the intent is opened; the gateway's capture
// webhook drives pending -> escrowed. A released payment can never be
// refunded through this path. All gateway calls are idempotent, keyed by the
// slot id, and bounded by the client timeout so a transition never blocks
// indefinitely on the gateway.
type EscrowService interface {
	// OpenIntent opens a capture for a paid slot and marks it pending.
	OpenIntent(tx *gorm.DB, slot *models.ReviewSlot, amount float64, customerID string) error

	// ConfirmCapture handles the gateway's capture webhook. Idempotent:
	// re-delivery of a confirmed capture is a no-op. If the slot reached a
	// terminal state before the capture confirmation arrived, the capture is
	// refunded immediately.
	ConfirmCapture(ctx context.Context, intentID string) error

	// Release transfers the escrowed amount minus the platform fee to the
	// reviewer. No-op when the slot is free (none), already released, or
	// refunded by an earlier rejection; InvalidState from pending.
	Release(tx *gorm.DB, slot *models.ReviewSlot, payoutAccountID string) error

	// Refund returns the escrowed amount to the requester. Only valid from
	// escrowed.
	Refund(tx *gorm.DB, slot *models.ReviewSlot) error

	// RefundIfEscrowed is the cancellation/rejection helper: refunds when
	// escrowed, does nothing for none/pending/refunded.
	RefundIfEscrowed(tx *gorm.DB, slot *models.ReviewSlot) error

	PayoutAmount(amount float64) float64
}

type escrowService struct {
	db             *gorm.DB
	slotRepo       repositories.SlotRepository
	gateway        payments.Gateway
	feePercent     float64
	gatewayTimeout time.Duration
}

func NewEscrowService(
	db *gorm.DB,
	slotRepo repositories.SlotRepository,
	gateway payments.Gateway,
	feePercent float64,
	gatewayTimeout time.Duration,
) EscrowService {
	return &escrowService{
		db:             db,
		slotRepo:       slotRepo,
		gateway:        gateway,
		feePercent:     feePercent,
		gatewayTimeout: gatewayTimeout,
	}
}

func (s *escrowService) OpenIntent(tx *gorm.DB, slot *models.ReviewSlot, amount float64, customerID string) error {
	if slot.PaymentStatus != models.PaymentStatusNone {
		return apperrors.ErrInvalidState("escrow", "payment intent already opened",
			string(models.PaymentStatusNone), string(slot.PaymentStatus))
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.gatewayTimeout)
	defer cancel()

	intent, err := s.gateway.CreateIntent(ctx, amount, customerID)
	if err != nil {
		return apperrors.ErrPaymentGateway(err, "failed to open payment intent")
	}

	slot.PaymentAmount = amount
	slot.PaymentStatus = models.PaymentStatusPending
	slot.PaymentIntentID = intent.ID
	return s.slotRepo.Update(tx, slot)
}

func (s *escrowService) ConfirmCapture(ctx context.Context, intentID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		slot, err := s.slotRepo.FindByPaymentIntent(tx, intentID)
		if err != nil {
			return apperrors.ErrNotFound(err)
		}

		switch slot.PaymentStatus {
		case models.PaymentStatusPending:
			// fallthrough to confirmation below
		case models.PaymentStatusEscrowed, models.PaymentStatusReleased, models.PaymentStatusRefunded:
			// Duplicate webhook delivery.
			logger.Debug("duplicate capture confirmation ignored", "intent_id", intentID, "payment_status", slot.PaymentStatus)
			return nil
		default:
			return apperrors.ErrInvalidState("escrow", "capture confirmed for free slot",
				string(models.PaymentStatusPending), string(slot.PaymentStatus))
		}

		slot.PaymentStatus = models.PaymentStatusEscrowed
		if err := s.slotRepo.Update(tx, slot); err != nil {
			return err
		}

		// The slot may have been rejected or cancelled while the capture was
		// in flight; return the money straight away.
		if slot.Status == models.SlotStatusRejected || slot.Status == models.SlotStatusCancelled {
			return s.Refund(tx, slot)
		}
		return nil
	})
}

func (s *escrowService) Release(tx *gorm.DB, slot *models.ReviewSlot, payoutAccountID string) error {
	switch slot.PaymentStatus {
	case models.PaymentStatusNone, models.PaymentStatusReleased:
		return nil
	case models.PaymentStatusRefunded:
		// A rejection refunds the escrow before the dispute verdict lands.
		// An overturned rejection still accepts the review, but there is no
		// money left to move.
		return nil
	case models.PaymentStatusEscrowed:
		// fallthrough to transfer below
	default:
		return apperrors.ErrInvalidState("escrow", "cannot release payment",
			string(models.PaymentStatusEscrowed), string(slot.PaymentStatus))
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.gatewayTimeout)
	defer cancel()

	transferID, err := s.gateway.Transfer(ctx, payoutAccountID, s.PayoutAmount(slot.PaymentAmount), slot.ID)
	if err != nil {
		return apperrors.ErrPaymentGateway(err, "failed to transfer escrowed payment")
	}

	slot.PaymentStatus = models.PaymentStatusReleased
	slot.TransferID = transferID
	return s.slotRepo.Update(tx, slot)
}

func (s *escrowService) Refund(tx *gorm.DB, slot *models.ReviewSlot) error {
	if slot.PaymentStatus != models.PaymentStatusEscrowed {
		return apperrors.ErrInvalidState("escrow", "refund only possible from escrow",
			string(models.PaymentStatusEscrowed), string(slot.PaymentStatus))
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.gatewayTimeout)
	defer cancel()

	refundID, err := s.gateway.Refund(ctx, slot.PaymentIntentID, slot.PaymentAmount, slot.ID)
	if err != nil {
		return apperrors.ErrPaymentGateway(err, "failed to refund escrowed payment")
	}

	slot.PaymentStatus = models.PaymentStatusRefunded
	slot.RefundID = refundID
	return s.slotRepo.Update(tx, slot)
}

func (s *escrowService) RefundIfEscrowed(tx *gorm.DB, slot *models.ReviewSlot) error {
	if slot.PaymentStatus != models.PaymentStatusEscrowed {
		return nil
	}
	return s.Refund(tx, slot)
}

func (s *escrowService) PayoutAmount(amount float64) float64 {
	return amount * (1 - s.feePercent/100)
}
