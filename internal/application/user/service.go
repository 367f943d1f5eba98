package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kyc-ledger/internal/domain"
	"github.com/kyc-ledger/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldRole   = "role"
	fieldEnable = "enable"
)

type Service interface {
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	List(ctx context.Context, limit int, cursor string) ([]domain.User, string, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	SetRole(ctx context.Context, userID, role string) (*domain.User, error)
	Disable(ctx context.Context, userID string) error
}

type userStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	QueryPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

// directoryCache is told when a user's role or enable flag changes.
type directoryCache interface {
	Invalidate(ctx context.Context, userID string) error
}

type service struct {
	repo  userStore
	cache directoryCache
	log   *slog.Logger
	now   func() time.Time
}

type ServiceDeps struct {
	UserRepo userStore
	Cache    directoryCache // optional
	Logger   *slog.Logger
}

func NewService(deps ServiceDeps) Service {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &service{
		repo:  deps.UserRepo,
		cache: deps.Cache,
		log:   log,
		now:   time.Now,
	}
}

func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	role := req.Role
	switch role {
	case "":
		role = domain.RoleCustomer
	case domain.RoleCustomer, domain.RoleArtist:
	default:
		return nil, fmt.Errorf("role %q cannot be self-assigned: %w", role, domain.ErrBadRequest)
	}
	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("username already taken: %w", domain.ErrConflict)
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Username:     req.Username,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Location:     req.Location,
		Role:         role,
		Enable:       1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) List(ctx context.Context, limit int, cursor string) ([]domain.User, string, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return s.repo.QueryPage(ctx, int32(limit), cursor)
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

// SetRole changes a user's role. A verification record the user already holds
// is left as is; selling still requires the artist role.
func (s *service) SetRole(ctx context.Context, userID, role string) (*domain.User, error) {
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("invalid role: %w", domain.ErrBadRequest)
	}
	if err := s.repo.Update(ctx, userID, map[string]interface{}{fieldRole: role}); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return s.repo.Get(ctx, userID)
}

// Disable soft-deletes the user; the directory then reports it as unknown.
func (s *service) Disable(ctx context.Context, userID string) error {
	if err := s.repo.Update(ctx, userID, map[string]interface{}{fieldEnable: 0}); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *service) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	// A stale entry expires with the cache TTL.
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.log.Warn("directory cache invalidate", "user_id", userID, "err", err)
	}
}
