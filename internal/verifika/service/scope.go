package service

import (
	"context"
	"errors"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/store"
)

// scope is the slice of assignments and activities an actor may see. Zero
// fields mean unrestricted.
type scope struct {
	TechnicianID int64
	ClientID     int64
}

// scopeFor resolves the profile behind a tecnico or cliente actor. Admins
// and validators are unrestricted.
func scopeFor(ctx context.Context, st store.Store, actor Actor) (scope, error) {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleValidator:
		return scope{}, nil
	case domain.RoleTechnician:
		t, err := st.Technicians().GetTechnicianByAccountID(ctx, actor.AccountID)
		if errors.Is(err, store.ErrNotFound) {
			return scope{}, ErrForbidden
		}
		return scope{TechnicianID: t.ID}, err
	case domain.RoleClient:
		c, err := st.Clients().GetClientByAccountID(ctx, actor.AccountID)
		if errors.Is(err, store.ErrNotFound) {
			return scope{}, ErrForbidden
		}
		return scope{ClientID: c.ID}, err
	}
	return scope{}, ErrForbidden
}

func (sc scope) allows(technicianID, clientID int64) bool {
	if sc.TechnicianID != 0 && sc.TechnicianID != technicianID {
		return false
	}
	if sc.ClientID != 0 && sc.ClientID != clientID {
		return false
	}
	return true
}
