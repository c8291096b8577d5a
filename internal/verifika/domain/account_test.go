package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestAccount_VerifyPassword(t *testing.T) {
	hash, err := cryptox.HashPassword("admin123", cryptox.MinCost)
	require.NoError(t, err)

	acc := &domain.Account{ID: 1, Email: "admin@x.io", PasswordHash: hash}

	require.True(t, acc.VerifyPassword("admin123"))
	require.False(t, acc.VerifyPassword("admin124"))
	require.False(t, acc.VerifyPassword(""), "empty password")

	noHash := &domain.Account{ID: 2}
	require.False(t, noHash.VerifyPassword("admin123"), "empty stored hash")
	require.False(t, noHash.VerifyPassword(""), "both empty")

	var nilAcc *domain.Account
	require.False(t, nilAcc.VerifyPassword("admin123"))
}

func TestAccount_JSONNeverCarriesPasswordHash(t *testing.T) {
	acc := domain.Account{
		ID:           7,
		Email:        "tec@x.io",
		PasswordHash: "$2b$12$secretsecretsecretsecretsecretsecretsecretsecretsecr",
		FirstName:    "Ana",
		LastName:     "Ruiz",
		Role:         domain.RoleTechnician,
		Status:       domain.StatusActive,
	}

	raw, err := json.Marshal(acc)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "password")
	require.NotContains(t, string(raw), "$2b$")

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	require.Equal(t, "tecnico", fields["rol"])
	require.Equal(t, "activo", fields["estado"])
	require.Equal(t, "Ana", fields["nombre"])
}

func TestAccount_Identity(t *testing.T) {
	acc := domain.Account{ID: 3, Email: "v@x.io", FirstName: "Val", LastName: "Ida", Role: domain.RoleValidator, Status: domain.StatusActive}
	id := acc.Identity()

	require.Equal(t, int64(3), id.ID)
	require.Equal(t, "v@x.io", id.Email)
	require.Equal(t, "validador", id.Role)
	require.Equal(t, "activo", id.Status)
	require.Equal(t, "Val Ida", acc.FullName())
}

func TestRoleCapabilities(t *testing.T) {
	tests := []struct {
		role                            domain.Role
		accounts, technicians, validate bool
		activities                      bool
	}{
		{domain.RoleAdmin, true, true, true, false},
		{domain.RoleTechnician, false, false, false, true},
		{domain.RoleClient, false, false, false, false},
		{domain.RoleValidator, false, false, true, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			require.True(t, tt.role.Valid())
			require.Equal(t, tt.accounts, tt.role.CanCreateAccounts())
			require.Equal(t, tt.technicians, tt.role.CanManageTechnicians())
			require.Equal(t, tt.validate, tt.role.CanValidateActivities())
			require.Equal(t, tt.activities, tt.role.CanCreateActivities())
		})
	}

	require.False(t, domain.Role("root").Valid())
}

func TestCapabilityHolders(t *testing.T) {
	holders := func(can domain.Capability) []domain.Role {
		var out []domain.Role
		for _, r := range domain.Roles {
			if can(r) {
				out = append(out, r)
			}
		}
		return out
	}

	admin, tech, client, validator := domain.RoleAdmin, domain.RoleTechnician, domain.RoleClient, domain.RoleValidator
	tests := map[string]struct {
		can  domain.Capability
		want []domain.Role
	}{
		"manage accounts":     {domain.Role.CanManageAccounts, []domain.Role{admin}},
		"view stats":          {domain.Role.CanViewStats, []domain.Role{admin}},
		"browse technicians":  {domain.Role.CanBrowseTechnicians, []domain.Role{admin, client}},
		"view technician":     {domain.Role.CanViewTechnicianProfile, []domain.Role{admin, tech, client}},
		"edit technician":     {domain.Role.CanEditTechnicianProfile, []domain.Role{admin, tech}},
		"edit client":         {domain.Role.CanEditClientProfile, []domain.Role{admin, client}},
		"validate activities": {domain.Role.CanValidateActivities, []domain.Role{admin, validator}},
		"create activities":   {domain.Role.CanCreateActivities, []domain.Role{tech}},
	}
	for name, tt := range tests {
		require.Equal(t, tt.want, holders(tt.can), name)
	}
}

func TestStatus(t *testing.T) {
	require.True(t, domain.StatusDeleted.Unavailable())
	require.True(t, domain.StatusSuspended.Unavailable())
	require.False(t, domain.StatusActive.Unavailable())
	require.False(t, domain.StatusInactive.Unavailable())
	require.False(t, domain.StatusPending.Unavailable())
	require.False(t, domain.Status("borrado").Valid())
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "admin@x.io", domain.NormalizeEmail("  Admin@X.IO "))
}
