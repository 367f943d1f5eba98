// Package directory resolves user ids to their existence and role for the
// verification ledger.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/kyc-ledger/internal/domain"
)

type userGetter interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// Repo resolves users from the user store. Disabled users do not exist.
type Repo struct {
	users userGetter
}

func NewRepo(users userGetter) *Repo {
	return &Repo{users: users}
}

func (d *Repo) ResolveUser(ctx context.Context, userID string) (domain.UserRef, error) {
	u, err := d.users.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.UserRef{ID: userID}, nil
	}
	if err != nil {
		return domain.UserRef{}, fmt.Errorf("get user: %w", err)
	}
	if u.Enable == 0 {
		return domain.UserRef{ID: userID}, nil
	}
	return domain.UserRef{ID: userID, Role: u.Role, Exists: true}, nil
}

// Static is a fixed id -> role directory.
type Static map[string]string

func (s Static) ResolveUser(_ context.Context, userID string) (domain.UserRef, error) {
	role, ok := s[userID]
	return domain.UserRef{ID: userID, Role: role, Exists: ok}, nil
}
