package services

import (
	"sparkreview_backend/internal/models"
	"sparkreview_backend/internal/repositories"
	"sparkreview_backend/internal/services/dto"
	"sparkreview_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type RequestService interface {
	Create(ownerID string, req *dto.CreateRequestRequest) (*dto.RequestResponse, error)
	Get(requestID string) (*dto.RequestResponse, error)
	ListOpen(page, pageSize int) (*dto.RequestListResponse, error)
	ListByOwner(ownerID string, page, pageSize int) (*dto.RequestListResponse, error)
	GetSlots(requestID string) ([]*dto.SlotResponse, error)
	Cancel(requestID, byUserID string) error
}

type requestService struct {
	db          *gorm.DB
	requestRepo repositories.RequestRepository
	slotRepo    repositories.SlotRepository
	userRepo    repositories.UserRepository
	escrow      EscrowService
	lifecycle   LifecycleService
}

func NewRequestService(
	db *gorm.DB,
	requestRepo repositories.RequestRepository,
	slotRepo repositories.SlotRepository,
	userRepo repositories.UserRepository,
	escrow EscrowService,
	lifecycle LifecycleService,
) RequestService {
	return &requestService{
		db:          db,
		requestRepo: requestRepo,
		slotRepo:    slotRepo,
		userRepo:    userRepo,
		escrow:      escrow,
		lifecycle:   lifecycle,
	}
}

// Create posts a request and pre-materializes its N slots. For a paid tier a
// payment intent is opened per slot (budget split evenly) and the slot waits
// in payment state pending until the gateway's capture webhook confirms
// escrow.
func (s *requestService) Create(ownerID string, req *dto.CreateRequestRequest) (*dto.RequestResponse, error) {
	if req.Budget > 0 && req.Tier == "free" {
		return nil, apperrors.NewBadRequestError("free tier requests cannot carry a budget")
	}

	var request *models.ReviewRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		owner, err := s.userRepo.FindByID(tx, ownerID)
		if err != nil {
			return apperrors.ErrNotFound(err)
		}

		tier := req.Tier
		if tier == "" {
			tier = "free"
		}
		request = &models.ReviewRequest{
			OwnerID:          ownerID,
			Title:            req.Title,
			Description:      req.Description,
			ContentURL:       req.ContentURL,
			Tier:             tier,
			Budget:           req.Budget,
			ReviewsRequested: req.ReviewsRequested,
			Status:           models.RequestStatusOpen,
		}
		if err := s.requestRepo.Create(tx, request); err != nil {
			return err
		}

		slots := make([]*models.ReviewSlot, 0, req.ReviewsRequested)
		for i := 0; i < req.ReviewsRequested; i++ {
			slots = append(slots, &models.ReviewSlot{
				RequestID: request.ID,
				Status:    models.SlotStatusAvailable,
			})
		}
		if err := s.slotRepo.CreateBatch(tx, slots); err != nil {
			return err
		}

		if request.IsPaid() {
			perSlot := request.Budget / float64(request.ReviewsRequested)
			for _, slot := range slots {
				if err := s.escrow.OpenIntent(tx, slot, perSlot, owner.ID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return buildRequestResponse(request), nil
}

func (s *requestService) Get(requestID string) (*dto.RequestResponse, error) {
	request, err := s.requestRepo.FindByID(s.db, requestID)
	if err != nil {
		return nil, apperrors.ErrNotFound(err)
	}
	return buildRequestResponse(request), nil
}

func (s *requestService) ListOpen(page, pageSize int) (*dto.RequestListResponse, error) {
	return s.list(func(limit, offset int) ([]models.ReviewRequest, int64, error) {
		return s.requestRepo.FindOpen(s.db, limit, offset)
	}, page, pageSize)
}

func (s *requestService) ListByOwner(ownerID string, page, pageSize int) (*dto.RequestListResponse, error) {
	return s.list(func(limit, offset int) ([]models.ReviewRequest, int64, error) {
		return s.requestRepo.FindByOwner(s.db, ownerID, limit, offset)
	}, page, pageSize)
}

func (s *requestService) list(fetch func(limit, offset int) ([]models.ReviewRequest, int64, error), page, pageSize int) (*dto.RequestListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	requests, total, err := fetch(pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	out := make([]*dto.RequestResponse, 0, len(requests))
	for i := range requests {
		out = append(out, buildRequestResponse(&requests[i]))
	}
	return &dto.RequestListResponse{
		Requests: out,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s *requestService) GetSlots(requestID string) ([]*dto.SlotResponse, error) {
	slots, err := s.slotRepo.FindByRequest(s.db, requestID)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.SlotResponse, 0, len(slots))
	for i := range slots {
		out = append(out, dto.NewSlotResponse(&slots[i]))
	}
	return out, nil
}

func (s *requestService) Cancel(requestID, byUserID string) error {
	return s.lifecycle.CancelRequest(requestID, byUserID)
}

func buildRequestResponse(request *models.ReviewRequest) *dto.RequestResponse {
	return &dto.RequestResponse{
		ID:               request.ID,
		OwnerID:          request.OwnerID,
		Title:            request.Title,
		Description:      request.Description,
		ContentURL:       request.ContentURL,
		Tier:             request.Tier,
		Budget:           request.Budget,
		ReviewsRequested: request.ReviewsRequested,
		ReviewsClaimed:   request.ReviewsClaimed,
		ReviewsCompleted: request.ReviewsCompleted,
		Status:           string(request.Status),
		CreatedAt:        request.CreatedAt,
	}
}
