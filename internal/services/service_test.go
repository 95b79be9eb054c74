package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"sparkreview_backend/database"
	"sparkreview_backend/internal/email"
	"sparkreview_backend/internal/models"
	"sparkreview_backend/internal/payments"
	"sparkreview_backend/internal/repositories"
	"sparkreview_backend/internal/services/dto"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBCounter atomic.Int64

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named in-memory database with a shared cache survives across the
	// pool's connections; a plain :memory: DSN would give every connection
	// its own empty database.
	dsn := fmt.Sprintf("file:services_test_%d?mode=memory&cache=shared", testDBCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.MigrateModels(db))
	return db
}

// fakeGateway is an in-memory payments.Gateway double. It hands out
// sequential ids and records every call so tests can assert amounts and
// idempotency keys.
type fakeGateway struct {
	intentSeq    atomic.Int64
	transferSeq  atomic.Int64
	refundSeq    atomic.Int64
	transfers    []gatewayCall
	refunds      []gatewayCall
	transferFail error
	refundFail   error
}

type gatewayCall struct {
	Target         string
	Amount         float64
	IdempotencyKey string
}

func (g *fakeGateway) CreateIntent(_ context.Context, amount float64, customerID string) (*payments.Intent, error) {
	return &payments.Intent{
		ID:     fmt.Sprintf("pi_%d", g.intentSeq.Add(1)),
		Amount: amount,
		Status: "requires_capture",
	}, nil
}

func (g *fakeGateway) Transfer(_ context.Context, destinationAccount string, amount float64, idempotencyKey string) (string, error) {
	if g.transferFail != nil {
		return "", g.transferFail
	}
	g.transfers = append(g.transfers, gatewayCall{destinationAccount, amount, idempotencyKey})
	return fmt.Sprintf("tr_%d", g.transferSeq.Add(1)), nil
}

func (g *fakeGateway) Refund(_ context.Context, intentID string, amount float64, idempotencyKey string) (string, error) {
	if g.refundFail != nil {
		return "", g.refundFail
	}
	g.refunds = append(g.refunds, gatewayCall{intentID, amount, idempotencyKey})
	return fmt.Sprintf("re_%d", g.refundSeq.Add(1)), nil
}

const (
	testClaimTimeout  = 72 * time.Hour
	testAutoAccept    = 5 * 24 * time.Hour
	testDisputeWindow = 3 * 24 * time.Hour
	testFeePercent    = 10.0
	testAbandonDays   = 30
	testWeeklyGoal    = 5
)

type testEnv struct {
	db      *gorm.DB
	gateway *fakeGateway
	mail    *email.MockProvider

	slotRepo    repositories.SlotRepository
	requestRepo repositories.RequestRepository
	userRepo    repositories.UserRepository
	appRepo     repositories.ApplicationRepository
	sparksRepo  repositories.SparksRepository

	auth      AuthService
	sparks    SparksService
	escrow    EscrowService
	notifier  NotificationService
	lifecycle LifecycleService
	claims    ClaimService
	requests  RequestService
	disputes  DisputeService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		db:      openTestDB(t),
		gateway: &fakeGateway{},
		mail:    email.NewMockProvider(),
	}

	env.slotRepo = repositories.NewSlotRepository()
	env.requestRepo = repositories.NewRequestRepository()
	env.userRepo = repositories.NewUserRepository()
	env.appRepo = repositories.NewApplicationRepository()
	env.sparksRepo = repositories.NewSparksRepository()
	notificationRepo := repositories.NewNotificationRepository()

	env.auth = NewAuthService(env.db, env.userRepo, "test-secret", 60)
	env.sparks = NewSparksService(env.db, env.sparksRepo, env.userRepo, testAbandonDays, testWeeklyGoal)
	env.escrow = NewEscrowService(env.db, env.slotRepo, env.gateway, testFeePercent, time.Second)
	env.notifier = NewNotificationService(env.db, notificationRepo, env.requestRepo, env.userRepo, env.mail)
	env.lifecycle = NewLifecycleService(
		env.db, env.slotRepo, env.requestRepo, env.userRepo, env.appRepo,
		env.sparks, env.escrow, env.notifier,
		testClaimTimeout, testAutoAccept, testDisputeWindow,
	)
	env.claims = NewClaimService(env.db, env.slotRepo, env.requestRepo, env.appRepo, env.lifecycle, env.notifier)
	env.requests = NewRequestService(env.db, env.requestRepo, env.slotRepo, env.userRepo, env.escrow, env.lifecycle)
	env.disputes = NewDisputeService(
		env.db, env.slotRepo, env.userRepo, env.sparks, env.escrow, env.lifecycle, env.notifier,
		models.DisputeOutcomeRequesterFavored,
	)
	return env
}

var userSeq atomic.Int64

func (e *testEnv) createUser(t *testing.T, role models.UserRole) *models.User {
	t.Helper()
	n := userSeq.Add(1)
	user := &models.User{
		Email:           fmt.Sprintf("user%d@example.com", n),
		PasswordHash:    "not-a-real-hash",
		DisplayName:     fmt.Sprintf("User %d", n),
		Role:            role,
		Status:          models.UserStatusActive,
		PayoutAccountID: fmt.Sprintf("acct_%d", n),
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createRequest(t *testing.T, owner *models.User, reviews int, budget float64) *dto.RequestResponse {
	t.Helper()
	tier := "free"
	if budget > 0 {
		tier = "standard"
	}
	resp, err := e.requests.Create(owner.ID, &dto.CreateRequestRequest{
		Title:            "Landing page feedback",
		Description:      "Looking for honest reactions to the new layout.",
		Tier:             tier,
		Budget:           budget,
		ReviewsRequested: reviews,
	})
	require.NoError(t, err)
	return resp
}

// claimedSlot walks a fresh request through one claim.
func (e *testEnv) claimedSlot(t *testing.T, owner, reviewer *models.User) *models.ReviewSlot {
	t.Helper()
	request := e.createRequest(t, owner, 1, 0)
	slot, err := e.claims.ClaimSlot(request.ID, reviewer.ID)
	require.NoError(t, err)
	return slot
}

// submittedSlot walks a fresh request through claim and submission.
func (e *testEnv) submittedSlot(t *testing.T, owner, reviewer *models.User) *models.ReviewSlot {
	t.Helper()
	slot := e.claimedSlot(t, owner, reviewer)
	slot, err := e.lifecycle.Submit(slot.ID, reviewer.ID, "The hero section reads well but the CTA is buried.")
	require.NoError(t, err)
	return slot
}

func (e *testEnv) reloadSlot(t *testing.T, id string) *models.ReviewSlot {
	t.Helper()
	slot, err := e.slotRepo.FindByID(e.db, id)
	require.NoError(t, err)
	return slot
}

func (e *testEnv) reloadRequest(t *testing.T, id string) *models.ReviewRequest {
	t.Helper()
	request, err := e.requestRepo.FindByID(e.db, id)
	require.NoError(t, err)
	return request
}

func (e *testEnv) reloadUser(t *testing.T, id string) *models.User {
	t.Helper()
	user, err := e.userRepo.FindByID(e.db, id)
	require.NoError(t, err)
	return user
}

func (e *testEnv) ledgerEntries(t *testing.T, userID string) []models.SparksTransaction {
	t.Helper()
	var entries []models.SparksTransaction
	require.NoError(t, e.db.Where("user_id = ?", userID).Order("created_at").Find(&entries).Error)
	return entries
}

func (e *testEnv) setClaimDeadline(t *testing.T, slotID string, deadline time.Time) {
	t.Helper()
	require.NoError(t, e.db.Model(&models.ReviewSlot{}).
		Where("id = ?", slotID).
		UpdateColumn("claim_deadline", deadline).Error)
}

func (e *testEnv) setDisputeDeadline(t *testing.T, slotID string, deadline time.Time) {
	t.Helper()
	require.NoError(t, e.db.Model(&models.ReviewSlot{}).
		Where("id = ?", slotID).
		UpdateColumn("dispute_deadline", deadline).Error)
}
