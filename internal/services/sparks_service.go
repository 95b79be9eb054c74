package services

import (
	"time"

	"sparkreview_backend/internal/models"
	"sparkreview_backend/internal/repositories"
	"sparkreview_backend/internal/services/dto"

	"gorm.io/gorm"
)

// Point tables. Everything is a table-driven constant except the acceptance
// credit, which is tiered by the requester's rating.
var acceptanceCreditByRating = map[int]int{
	5: 40,
	4: 30,
	3: 20,
	2: 5,
	1: 0,
}

const (
	PointsSubmission        = 5
	PointsAutoAccept        = 15
	PointsRejection         = -10
	PointsDisputeReviewer   = 50
	PointsDisputeRequester  = -30
	PointsAbandonFirst      = -20
	PointsAbandonRepeat     = -40
	PointsWeeklyGoal        = 30
	PointsProfileCompleted  = 25
	PointsPortfolioAdded    = 25
)

var streakBonusByDays = map[int]int{
	5:  25,
	10: 75,
	25: 200,
}

type SparksService interface {
	// Record appends one ledger row and updates the user's cached balance
	// in the caller's transaction. Returns the new balance.
	Record(tx *gorm.DB, userID, action string, points int, slotID *string) (int, error)

	// AcceptanceCredit returns the tiered credit for a manual acceptance.
	AcceptanceCredit(rating int) int

	// AbandonPenalty returns the graduated penalty for the reviewer: the
	// repeat tier applies when the ledger shows a prior abandonment inside
	// the rolling history window.
	AbandonPenalty(tx *gorm.DB, reviewerID string) (int, error)

	// AdvanceStreak moves the reviewer's daily streak forward for a
	// submission made at now, recording any threshold bonus that becomes
	// due. Must run inside the submission transaction.
	AdvanceStreak(tx *gorm.DB, user *models.User, now time.Time) error

	// GrantProfileBonus / GrantPortfolioBonus are the one-time bonuses.
	// Granting twice is a no-op.
	GrantProfileBonus(userID string) error
	GrantPortfolioBonus(userID string) error

	GetBalance(userID string) (*dto.SparksBalanceResponse, error)
	GetHistory(userID string, page, pageSize int) (*dto.SparksHistoryResponse, error)
}

type sparksService struct {
	db                 *gorm.DB
	sparksRepo         repositories.SparksRepository
	userRepo           repositories.UserRepository
	abandonHistoryDays int
	weeklyGoalReviews  int
}

func NewSparksService(
	db *gorm.DB,
	sparksRepo repositories.SparksRepository,
	userRepo repositories.UserRepository,
	abandonHistoryDays int,
	weeklyGoalReviews int,
) SparksService {
	return &sparksService{
		db:                 db,
		sparksRepo:         sparksRepo,
		userRepo:           userRepo,
		abandonHistoryDays: abandonHistoryDays,
		weeklyGoalReviews:  weeklyGoalReviews,
	}
}

func (s *sparksService) Record(tx *gorm.DB, userID, action string, points int, slotID *string) (int, error) {
	txn, err := s.sparksRepo.Append(tx, userID, action, points, slotID)
	if err != nil {
		return 0, err
	}
	return txn.BalanceAfter, nil
}

func (s *sparksService) AcceptanceCredit(rating int) int {
	return acceptanceCreditByRating[rating]
}

func (s *sparksService) AbandonPenalty(tx *gorm.DB, reviewerID string) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -s.abandonHistoryDays)
	prior, err := s.sparksRepo.CountActionSince(tx, reviewerID, models.SparksActionSlotAbandoned, cutoff)
	if err != nil {
		return 0, err
	}
	if prior > 0 {
		return PointsAbandonRepeat, nil
	}
	return PointsAbandonFirst, nil
}

func (s *sparksService) AdvanceStreak(tx *gorm.DB, user *models.User, now time.Time) error {
	today := now.Truncate(24 * time.Hour)

	switch {
	case user.LastReviewDate == nil:
		user.CurrentStreakDays = 1
	case user.LastReviewDate.Truncate(24 * time.Hour).Equal(today):
		// Second review today, streak unchanged.
	case user.LastReviewDate.Truncate(24 * time.Hour).Equal(today.AddDate(0, 0, -1)):
		user.CurrentStreakDays++
		if bonus, ok := streakBonusByDays[user.CurrentStreakDays]; ok {
			if _, err := s.Record(tx, user.ID, models.SparksActionStreakBonus, bonus, nil); err != nil {
				return err
			}
		}
	default:
		user.CurrentStreakDays = 1
	}

	if user.CurrentStreakDays > user.LongestStreakDays {
		user.LongestStreakDays = user.CurrentStreakDays
	}
	user.LastReviewDate = &today

	// Weekly goal counter, reset on week rollover (Monday-based).
	weekStart := startOfWeek(today)
	if user.WeekStart == nil || !user.WeekStart.Equal(weekStart) {
		user.WeekStart = &weekStart
		user.WeeklyReviewCount = 0
	}
	user.WeeklyReviewCount++
	if user.WeeklyReviewCount == s.weeklyGoalReviews {
		if _, err := s.Record(tx, user.ID, models.SparksActionWeeklyGoalBonus, PointsWeeklyGoal, nil); err != nil {
			return err
		}
	}

	return s.userRepo.UpdateStreak(tx, user)
}

func (s *sparksService) GrantProfileBonus(userID string) error {
	return s.grantOneTime(userID, models.SparksActionProfileCompleted, PointsProfileCompleted)
}

func (s *sparksService) GrantPortfolioBonus(userID string) error {
	return s.grantOneTime(userID, models.SparksActionPortfolioAdded, PointsPortfolioAdded)
}

func (s *sparksService) grantOneTime(userID, action string, points int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		granted, err := s.sparksRepo.HasAction(tx, userID, action)
		if err != nil {
			return err
		}
		if granted {
			return nil
		}
		_, err = s.Record(tx, userID, action, points, nil)
		return err
	})
}

func (s *sparksService) GetBalance(userID string) (*dto.SparksBalanceResponse, error) {
	user, err := s.userRepo.FindByID(s.db, userID)
	if err != nil {
		return nil, err
	}
	return &dto.SparksBalanceResponse{
		UserID:        user.ID,
		Balance:       user.SparksPoints,
		CurrentStreak: user.CurrentStreakDays,
		LongestStreak: user.LongestStreakDays,
	}, nil
}

func (s *sparksService) GetHistory(userID string, page, pageSize int) (*dto.SparksHistoryResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	txns, total, err := s.sparksRepo.FindByUser(s.db, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	out := make([]*dto.SparksTransactionResponse, 0, len(txns))
	for i := range txns {
		t := txns[i]
		out = append(out, &dto.SparksTransactionResponse{
			ID:           t.ID,
			Action:       t.Action,
			Points:       t.Points,
			BalanceAfter: t.BalanceAfter,
			SlotID:       t.SlotID,
			CreatedAt:    t.CreatedAt,
		})
	}
	return &dto.SparksHistoryResponse{
		Transactions: out,
		Total:        total,
		Page:         page,
		PageSize:     pageSize,
	}, nil
}

func startOfWeek(day time.Time) time.Time {
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return day.AddDate(0, 0, -(weekday - 1))
}
