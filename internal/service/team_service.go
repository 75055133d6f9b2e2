package service

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/alabenkhlifa/opauto-core/internal/models"
	appErrors "github.com/alabenkhlifa/opauto-core/pkg/errors"
)

type userStore interface {
	Create(user *models.User) (*models.User, error)
	GetByID(id string) (*models.User, error)
	Update(id string, fn func(*models.User)) (*models.User, error)
	List(filter models.UserFilter) []models.User
	CountActive() int
}

// CreateUserRequest represents the payload for adding a team member.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	FullName string          `json:"full_name" validate:"required"`
	Role     models.UserRole `json:"role" validate:"required,oneof=owner manager mechanic viewer"`
	Phone    string          `json:"phone"`
	Password string          `json:"password" validate:"required,min=8"`
}

// UpdateUserRequest is the payload for editing a team member's profile.
type UpdateUserRequest struct {
	FullName string          `json:"full_name" validate:"required"`
	Role     models.UserRole `json:"role" validate:"required,oneof=owner manager mechanic viewer"`
	Phone    string          `json:"phone"`
}

// TeamService manages the shop roster.
type TeamService struct {
	store     userStore
	gate      limitGate
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeamService creates an instance of TeamService.
func NewTeamService(st userStore, gate limitGate, logger *zap.Logger) *TeamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeamService{store: st, gate: gate, validator: validator.New(), logger: logger}
}

// Create adds an active team member after tier gating and validation.
func (s *TeamService) Create(req CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}
	if s.gate != nil {
		if err := s.gate.Allow(models.ResourceUsers, s.store.CountActive()); err != nil {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user, err := s.store.Create(&models.User{
		Email:        req.Email,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: string(hash),
		Active:       true,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("team member created", zap.String("id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Get returns a team member by id.
func (s *TeamService) Get(id string) (*models.User, error) {
	return s.store.GetByID(id)
}

// Update edits profile fields; credentials and activation are separate paths.
func (s *TeamService) Update(id string, req UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update user payload")
	}
	return s.store.Update(id, func(u *models.User) {
		u.FullName = strings.TrimSpace(req.FullName)
		u.Role = req.Role
		u.Phone = strings.TrimSpace(req.Phone)
	})
}

// SetActive toggles a member's active flag. Idempotent.
func (s *TeamService) SetActive(id string, active bool) (*models.User, error) {
	user, err := s.store.Update(id, func(u *models.User) {
		u.Active = active
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("team member activation changed", zap.String("id", id), zap.Bool("active", active))
	return user, nil
}

// List returns team members matching the filter.
func (s *TeamService) List(filter models.UserFilter) []models.User {
	return s.store.List(filter)
}
