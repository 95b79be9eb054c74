package services

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"sparkreview_backend/internal/models"
	"sparkreview_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimSlotNoCapacity(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	first := env.createUser(t, models.UserRoleReviewer)
	second := env.createUser(t, models.UserRoleReviewer)
	third := env.createUser(t, models.UserRoleReviewer)

	request := env.createRequest(t, owner, 2, 0)
	_, err := env.claims.ClaimSlot(request.ID, first.ID)
	require.NoError(t, err)
	_, err = env.claims.ClaimSlot(request.ID, second.ID)
	require.NoError(t, err)

	_, err = env.claims.ClaimSlot(request.ID, third.ID)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeSlotUnavailable, appErr.Code)
}

func TestClaimSlotPicksDistinctSlots(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	first := env.createUser(t, models.UserRoleReviewer)
	second := env.createUser(t, models.UserRoleReviewer)

	request := env.createRequest(t, owner, 2, 0)
	a, err := env.claims.ClaimSlot(request.ID, first.ID)
	require.NoError(t, err)
	b, err := env.claims.ClaimSlot(request.ID, second.ID)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestConcurrentClaimsOnSingleSlot(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	first := env.createUser(t, models.UserRoleReviewer)
	second := env.createUser(t, models.UserRoleReviewer)

	request := env.createRequest(t, owner, 1, 0)

	// Both reviewers race for the same slot. sqlite serializes writers, so
	// lock contention is retried until the claim resolves one way or the
	// other.
	claim := func(reviewerID string) error {
		for attempt := 0; attempt < 100; attempt++ {
			_, err := env.claims.ClaimSlot(request.ID, reviewerID)
			if err != nil && isLockContention(err) {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			return err
		}
		return errTestLockRetriesExhausted
	}

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, reviewerID := range []string{first.ID, second.ID} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			results <- claim(id)
		}(reviewerID)
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok, "loser must get a typed error, got: %v", err)
		assert.Equal(t, apperrors.CodeSlotUnavailable, appErr.Code)
		losses++
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)

	reloaded := env.reloadRequest(t, request.ID)
	assert.Equal(t, 1, reloaded.ReviewsClaimed)
}

var errTestLockRetriesExhausted = errors.New("lock retries exhausted")

func isLockContention(err error) bool {
	if _, ok := apperrors.AsAppError(err); ok {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "locked") || strings.Contains(msg, "busy")
}

func TestApplyCreatesPendingApplication(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	applicant := env.createUser(t, models.UserRoleReviewer)

	request := env.createRequest(t, owner, 1, 0)
	application, err := env.claims.Apply(applicant.ID, request.ID, "Ten years of UX review experience.")
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationStatusPending, application.Status)
	assert.Equal(t, applicant.ID, application.ApplicantID)
	assert.Nil(t, application.SlotID)
}

func TestApplyTwiceRejected(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	applicant := env.createUser(t, models.UserRoleReviewer)

	request := env.createRequest(t, owner, 1, 0)
	_, err := env.claims.Apply(applicant.ID, request.ID, "first application text")
	require.NoError(t, err)

	_, err = env.claims.Apply(applicant.ID, request.ID, "second application text")
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeDuplicateApplication, appErr.Code)
}

func TestOwnerCannotApplyToOwnRequest(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)

	request := env.createRequest(t, owner, 1, 0)
	_, err := env.claims.Apply(owner.ID, request.ID, "reviewing my own work")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidUserRole))
}

func TestAcceptApplicationClaimsSlot(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	applicant := env.createUser(t, models.UserRoleReviewer)

	request := env.createRequest(t, owner, 1, 0)
	application, err := env.claims.Apply(applicant.ID, request.ID, "Background in editorial review.")
	require.NoError(t, err)

	slot, err := env.claims.AcceptApplication(application.ID, owner.ID)
	require.NoError(t, err)

	assert.Equal(t, models.SlotStatusClaimed, slot.Status)
	require.NotNil(t, slot.ReviewerID)
	assert.Equal(t, applicant.ID, *slot.ReviewerID)

	reloaded, err := env.appRepo.FindByID(env.db, application.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusAccepted, reloaded.Status)
	require.NotNil(t, reloaded.SlotID)
	assert.Equal(t, slot.ID, *reloaded.SlotID)
	require.NotNil(t, reloaded.DecidedBy)
	assert.Equal(t, owner.ID, *reloaded.DecidedBy)
}

func TestAcceptApplicationRequiresOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	applicant := env.createUser(t, models.UserRoleReviewer)
	intruder := env.createUser(t, models.UserRoleRequester)

	request := env.createRequest(t, owner, 1, 0)
	application, err := env.claims.Apply(applicant.ID, request.ID, "Happy to take this one on.")
	require.NoError(t, err)

	_, err = env.claims.AcceptApplication(application.ID, intruder.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientPermissions))
}

func TestAcceptApplicationWithoutCapacity(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	reviewer := env.createUser(t, models.UserRoleReviewer)
	applicant := env.createUser(t, models.UserRoleReviewer)

	request := env.createRequest(t, owner, 1, 0)
	application, err := env.claims.Apply(applicant.ID, request.ID, "Applying for the last slot.")
	require.NoError(t, err)

	// Direct claim takes the only slot out from under the application.
	_, err = env.claims.ClaimSlot(request.ID, reviewer.ID)
	require.NoError(t, err)

	_, err = env.claims.AcceptApplication(application.ID, owner.ID)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeSlotUnavailable, appErr.Code)

	// The failed acceptance leaves the application pending for later.
	reloaded, err := env.appRepo.FindByID(env.db, application.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusPending, reloaded.Status)
}

func TestRejectAndWithdrawApplication(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	applicant := env.createUser(t, models.UserRoleReviewer)

	request := env.createRequest(t, owner, 2, 0)

	application, err := env.claims.Apply(applicant.ID, request.ID, "First of two applications.")
	require.NoError(t, err)
	require.NoError(t, env.claims.RejectApplication(application.ID, owner.ID))

	reloaded, err := env.appRepo.FindByID(env.db, application.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusRejected, reloaded.Status)

	// A rejected application is terminal, so the applicant may re-apply.
	application, err = env.claims.Apply(applicant.ID, request.ID, "Second attempt after rejection.")
	require.NoError(t, err)
	require.NoError(t, env.claims.WithdrawApplication(application.ID, applicant.ID))

	reloaded, err = env.appRepo.FindByID(env.db, application.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusWithdrawn, reloaded.Status)
}

func TestWithdrawRequiresApplicant(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	applicant := env.createUser(t, models.UserRoleReviewer)
	intruder := env.createUser(t, models.UserRoleReviewer)

	request := env.createRequest(t, owner, 1, 0)
	application, err := env.claims.Apply(applicant.ID, request.ID, "Only I may withdraw this.")
	require.NoError(t, err)

	err = env.claims.WithdrawApplication(application.ID, intruder.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientPermissions))
}

func TestDecideTwiceFails(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	applicant := env.createUser(t, models.UserRoleReviewer)

	request := env.createRequest(t, owner, 1, 0)
	application, err := env.claims.Apply(applicant.ID, request.ID, "Decide this one exactly once.")
	require.NoError(t, err)

	require.NoError(t, env.claims.RejectApplication(application.ID, owner.ID))
	err = env.claims.RejectApplication(application.ID, owner.ID)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInvalidState, appErr.Code)
}

func TestCancelRequestExpiresPendingApplications(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, models.UserRoleRequester)
	applicant := env.createUser(t, models.UserRoleReviewer)

	request := env.createRequest(t, owner, 1, 0)
	application, err := env.claims.Apply(applicant.ID, request.ID, "Pending when the request dies.")
	require.NoError(t, err)

	require.NoError(t, env.lifecycle.CancelRequest(request.ID, owner.ID))

	reloaded, err := env.appRepo.FindByID(env.db, application.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusExpired, reloaded.Status)
}
