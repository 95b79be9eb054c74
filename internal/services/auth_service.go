package services

import (
	"time"

	"sparkreview_backend/internal/models"
	"sparkreview_backend/internal/repositories"
	"sparkreview_backend/internal/services/dto"
	"sparkreview_backend/pkg/apperrors"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService interface {
	Register(req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(req *dto.LoginRequest) (*dto.AuthResponse, error)
	ParseToken(token string) (userID string, role models.UserRole, err error)
}

type authService struct {
	db        *gorm.DB
	userRepo  repositories.UserRepository
	jwtSecret string
	jwtTTL    time.Duration
}

func NewAuthService(db *gorm.DB, userRepo repositories.UserRepository, jwtSecret string, jwtTTLMinutes int) AuthService {
	return &authService{
		db:        db,
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		jwtTTL:    time.Duration(jwtTTLMinutes) * time.Minute,
	}
}

func (s *authService) Register(req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		DisplayName:  req.DisplayName,
		Role:         models.UserRole(req.Role),
		Status:       models.UserStatusActive,
	}
	if err := s.userRepo.Create(s.db, user); err != nil {
		if apperrors.Is(err, repositories.ErrUserAlreadyExists) {
			return nil, apperrors.ErrAlreadyExists(err)
		}
		return nil, err
	}

	return s.buildAuthResponse(user)
}

func (s *authService) Login(req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(s.db, req.Email)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.NewUnauthorizedError("invalid credentials")
	}
	if user.Status != models.UserStatusActive {
		return nil, apperrors.NewForbiddenError("account is not active")
	}

	return s.buildAuthResponse(user)
}

func (s *authService) buildAuthResponse(user *models.User) (*dto.AuthResponse, error) {
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"exp":  time.Now().Add(s.jwtTTL).Unix(),
		"iat":  time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.AuthResponse{
		Token: token,
		User: &dto.UserResponse{
			ID:           user.ID,
			Email:        user.Email,
			DisplayName:  user.DisplayName,
			Role:         string(user.Role),
			Tier:         user.Tier,
			SparksPoints: user.SparksPoints,
		},
	}, nil
}

func (s *authService) ParseToken(tokenString string) (string, models.UserRole, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.New(apperrors.CodeInvalidToken, "auth", "unexpected signing method", 401)
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return "", "", apperrors.NewUnauthorizedError("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", apperrors.NewUnauthorizedError("invalid token claims")
	}
	userID, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if userID == "" {
		return "", "", apperrors.NewUnauthorizedError("invalid token subject")
	}
	return userID, models.UserRole(role), nil
}
