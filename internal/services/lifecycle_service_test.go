package services

import (
	"testing"
	"time"

	"sparkreview_backend/internal/models"
	"sparkreview_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimMovesSlotToClaimed(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	reviewer := env.createUser(t, models.UserRoleReviewer)

	request := env.createRequest(t, owner, 2, 0)
	slot, err := env.claims.ClaimSlot(request.ID, reviewer.ID)
	require.NoError(t, err)

	assert.Equal(t, models.SlotStatusClaimed, slot.Status)
	require.NotNil(t, slot.ReviewerID)
	assert.Equal(t, reviewer.ID, *slot.ReviewerID)
	require.NotNil(t, slot.ClaimDeadline)
	assert.WithinDuration(t, time.Now().Add(testClaimTimeout), *slot.ClaimDeadline, time.Minute)

	reloaded, err := env.requestRepo.FindByID(env.db, request.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.ReviewsClaimed)
}

func TestClaimCapStopsFurtherClaims(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	first := env.createUser(t, models.UserRoleReviewer)
	second := env.createUser(t, models.UserRoleReviewer)

	request := env.createRequest(t, owner, 1, 0)
	_, err := env.claims.ClaimSlot(request.ID, first.ID)
	require.NoError(t, err)

	_, err = env.claims.ClaimSlot(request.ID, second.ID)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeSlotUnavailable, appErr.Code)
}

func TestClaimUnavailableSlotFails(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	reviewer := env.createUser(t, models.UserRoleReviewer)

	request := env.createRequest(t, owner, 1, 0)

	var slot models.ReviewSlot
	require.NoError(t, env.db.First(&slot, "request_id = ?", request.ID).Error)
	require.NoError(t, env.db.Model(&slot).UpdateColumn("status", models.SlotStatusCancelled).Error)

	_, err := env.lifecycle.Claim(slot.ID, reviewer.ID)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeSlotUnavailable, appErr.Code)

	reloaded, err := env.requestRepo.FindByID(env.db, request.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.ReviewsClaimed, "failed claim leaves the counter untouched")
}

func TestOwnerCannotClaimOwnRequest(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)

	request := env.createRequest(t, owner, 1, 0)
	_, err := env.claims.ClaimSlot(request.ID, owner.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidUserRole))
}

func TestSubmitRecordsReviewAndLedgerEntry(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	reviewer := env.createUser(t, models.UserRoleReviewer)

	slot := env.submittedSlot(t, owner, reviewer)
	assert.Equal(t, models.SlotStatusSubmitted, slot.Status)
	require.NotNil(t, slot.SubmittedAt)
	require.NotNil(t, slot.AutoAcceptAt)
	assert.WithinDuration(t, time.Now().Add(testAutoAccept), *slot.AutoAcceptAt, time.Minute)

	entries := env.ledgerEntries(t, reviewer.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, models.SparksActionReviewSubmitted, entries[0].Action)
	assert.Equal(t, PointsSubmission, entries[0].Points)
	assert.Equal(t, PointsSubmission, entries[0].BalanceAfter)

	user := env.reloadUser(t, reviewer.ID)
	assert.Equal(t, PointsSubmission, user.SparksPoints)
	assert.Equal(t, 1, user.CurrentStreakDays)
}

func TestSubmitRequiresClaimOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	reviewer := env.createUser(t, models.UserRoleReviewer)
	intruder := env.createUser(t, models.UserRoleReviewer)

	slot := env.claimedSlot(t, owner, reviewer)
	_, err := env.lifecycle.Submit(slot.ID, intruder.ID, "someone else's review")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientPermissions))
}

func TestSubmitAfterDeadlineRejected(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	reviewer := env.createUser(t, models.UserRoleReviewer)

	slot := env.claimedSlot(t, owner, reviewer)
	env.setClaimDeadline(t, slot.ID, time.Now().Add(-time.Hour))

	_, err := env.lifecycle.Submit(slot.ID, reviewer.ID, "too late")
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
}

func TestManualAcceptCreditsTieredPoints(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	reviewer := env.createUser(t, models.UserRoleReviewer)

	slot := env.submittedSlot(t, owner, reviewer)
	rating := 5
	slot, err := env.lifecycle.Accept(slot.ID, owner.ID, &rating, models.AcceptanceManual)
	require.NoError(t, err)

	assert.Equal(t, models.SlotStatusAccepted, slot.Status)
	require.NotNil(t, slot.Rating)
	assert.Equal(t, 5, *slot.Rating)
	require.NotNil(t, slot.AcceptanceType)
	assert.Equal(t, models.AcceptanceManual, *slot.AcceptanceType)

	entries := env.ledgerEntries(t, reviewer.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, models.SparksActionReviewAccepted, entries[1].Action)
	assert.Equal(t, 40, entries[1].Points)
	assert.Equal(t, PointsSubmission+40, entries[1].BalanceAfter)

	request, err := env.requestRepo.FindByID(env.db, slot.RequestID)
	require.NoError(t, err)
	assert.Equal(t, 1, request.ReviewsCompleted)
	assert.Equal(t, models.RequestStatusCompleted, request.Status)
}

func TestManualAcceptRequiresOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	reviewer := env.createUser(t, models.UserRoleReviewer)
	intruder := env.createUser(t, models.UserRoleRequester)

	slot := env.submittedSlot(t, owner, reviewer)
	rating := 4
	_, err := env.lifecycle.Accept(slot.ID, intruder.ID, &rating, models.AcceptanceManual)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientPermissions))
}

func TestManualAcceptValidatesRating(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	reviewer := env.createUser(t, models.UserRoleReviewer)

	slot := env.submittedSlot(t, owner, reviewer)

	for _, rating := range []int{0, 6} {
		r := rating
		_, err := env.lifecycle.Accept(slot.ID, owner.ID, &r, models.AcceptanceManual)
		require.Error(t, err, "rating %d must be rejected", rating)
	}
	_, err := env.lifecycle.Accept(slot.ID, owner.ID, nil, models.AcceptanceManual)
	require.Error(t, err, "missing rating must be rejected")
}

func TestAutoAcceptCreditsFlatPoints(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	reviewer := env.createUser(t, models.UserRoleReviewer)

	slot := env.submittedSlot(t, owner, reviewer)
	slot, err := env.lifecycle.Accept(slot.ID, SystemActor, nil, models.AcceptanceAuto)
	require.NoError(t, err)

	assert.Equal(t, models.SlotStatusAccepted, slot.Status)
	assert.Nil(t, slot.Rating, "auto acceptance carries no rating")

	entries := env.ledgerEntries(t, reviewer.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, models.SparksActionReviewAutoAccepted, entries[1].Action)
	assert.Equal(t, PointsAutoAccept, entries[1].Points)
}

func TestAcceptFromWrongStateFails(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	reviewer := env.createUser(t, models.UserRoleReviewer)

	slot := env.claimedSlot(t, owner, reviewer)
	rating := 3
	_, err := env.lifecycle.Accept(slot.ID, owner.ID, &rating, models.AcceptanceManual)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInvalidState, appErr.Code)
}

func TestRejectDebitsReviewerAndOpensDisputeWindow(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	reviewer := env.createUser(t, models.UserRoleReviewer)

	slot := env.submittedSlot(t, owner, reviewer)
	slot, err := env.lifecycle.Reject(slot.ID, owner.ID, "off_topic", "The review ignored the brief.")
	require.NoError(t, err)

	assert.Equal(t, models.SlotStatusRejected, slot.Status)
	assert.Equal(t, "off_topic", slot.RejectionReason)
	require.NotNil(t, slot.DisputeDeadline)
	assert.WithinDuration(t, time.Now().Add(testDisputeWindow), *slot.DisputeDeadline, time.Minute)

	entries := env.ledgerEntries(t, reviewer.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, models.SparksActionReviewRejected, entries[1].Action)
	assert.Equal(t, PointsRejection, entries[1].Points)
	assert.Equal(t, PointsSubmission+PointsRejection, entries[1].BalanceAfter)
}

func TestAbandonReturnsSlotToPool(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	reviewer := env.createUser(t, models.UserRoleReviewer)

	slot := env.claimedSlot(t, owner, reviewer)
	env.setClaimDeadline(t, slot.ID, time.Now().Add(-time.Hour))

	slot, err := env.lifecycle.Abandon(slot.ID)
	require.NoError(t, err)

	assert.Equal(t, models.SlotStatusAvailable, slot.Status)
	assert.Nil(t, slot.ReviewerID)
	assert.Nil(t, slot.ClaimDeadline)

	request, err := env.requestRepo.FindByID(env.db, slot.RequestID)
	require.NoError(t, err)
	assert.Equal(t, 0, request.ReviewsClaimed, "abandonment frees claim capacity")

	entries := env.ledgerEntries(t, reviewer.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, models.SparksActionSlotAbandoned, entries[0].Action)
	assert.Equal(t, PointsAbandonFirst, entries[0].Points)
}

func TestAbandonEscalatesForRepeatOffenders(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	reviewer := env.createUser(t, models.UserRoleReviewer)

	for i := 0; i < 2; i++ {
		slot := env.claimedSlot(t, owner, reviewer)
		env.setClaimDeadline(t, slot.ID, time.Now().Add(-time.Hour))
		_, err := env.lifecycle.Abandon(slot.ID)
		require.NoError(t, err)
	}

	entries := env.ledgerEntries(t, reviewer.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, PointsAbandonFirst, entries[0].Points)
	assert.Equal(t, PointsAbandonRepeat, entries[1].Points)
	assert.Equal(t, PointsAbandonFirst+PointsAbandonRepeat, entries[1].BalanceAfter)
}

func TestAbandonBeforeDeadlineRejected(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	reviewer := env.createUser(t, models.UserRoleReviewer)

	slot := env.claimedSlot(t, owner, reviewer)
	_, err := env.lifecycle.Abandon(slot.ID)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInvalidState, appErr.Code)
}

func TestReclaimAfterAbandonment(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	first := env.createUser(t, models.UserRoleReviewer)
	second := env.createUser(t, models.UserRoleReviewer)

	slot := env.claimedSlot(t, owner, first)
	env.setClaimDeadline(t, slot.ID, time.Now().Add(-time.Hour))
	_, err := env.lifecycle.Abandon(slot.ID)
	require.NoError(t, err)

	slot, err = env.claims.ClaimSlot(slot.RequestID, second.ID)
	require.NoError(t, err)
	require.NotNil(t, slot.ReviewerID)
	assert.Equal(t, second.ID, *slot.ReviewerID)
}

func TestCancelRequestCancelsNonTerminalSlots(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	reviewer := env.createUser(t, models.UserRoleReviewer)

	request := env.createRequest(t, owner, 3, 0)
	claimed, err := env.claims.ClaimSlot(request.ID, reviewer.ID)
	require.NoError(t, err)

	require.NoError(t, env.lifecycle.CancelRequest(request.ID, owner.ID))

	slots, err := env.slotRepo.FindByRequest(env.db, request.ID)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	for _, slot := range slots {
		assert.Equal(t, models.SlotStatusCancelled, slot.Status)
	}

	// The request is soft-deleted out of listings on cancellation.
	var reloaded models.ReviewRequest
	require.NoError(t, env.db.Unscoped().First(&reloaded, "id = ?", request.ID).Error)
	assert.Equal(t, models.RequestStatusCancelled, reloaded.Status)
	assert.True(t, reloaded.DeletedAt.Valid)

	// Cancellation is administrative: nobody gains or loses points.
	assert.Empty(t, env.ledgerEntries(t, reviewer.ID))

	_, err = env.lifecycle.Submit(claimed.ID, reviewer.ID, "review for a dead slot")
	require.Error(t, err)
}

func TestCancelRequestRequiresOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	intruder := env.createUser(t, models.UserRoleRequester)

	request := env.createRequest(t, owner, 1, 0)
	err := env.lifecycle.CancelRequest(request.ID, intruder.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientPermissions))
}
