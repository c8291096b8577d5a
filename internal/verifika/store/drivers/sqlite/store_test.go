package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/store"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewStore(DSN(filepath.Join(t.TempDir(), "verifika.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())
	return st
}

func newAccount(t *testing.T, st store.Store, email string, role domain.Role, status domain.Status) domain.Account {
	t.Helper()
	a := domain.Account{Email: email, PasswordHash: "x", FirstName: "Ana", LastName: "Ruiz", Role: role, Status: status}
	require.NoError(t, st.Accounts().CreateAccount(context.Background(), &a))
	return a
}

func newTechnician(t *testing.T, st store.Store, email string, status domain.Status, avail domain.Availability) domain.Technician {
	t.Helper()
	a := newAccount(t, st, email, domain.RoleTechnician, status)
	tech := domain.Technician{AccountID: a.ID, Availability: avail}
	require.NoError(t, st.Technicians().CreateTechnician(context.Background(), &tech))
	return tech
}

func date(t *testing.T, s string) domain.Date {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()
	st := newStore(t)
	require.NoError(t, st.ApplyMigrations())

	comps, total, err := st.Competencies().ListCompetencies(context.Background(),
		store.CompetencyFilter{Page: domain.DefaultPage()})
	require.NoError(t, err)
	require.EqualValues(t, 10, total)
	require.Len(t, comps, 10)
}

func TestAccounts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("email is normalized and unique among live accounts", func(t *testing.T) {
		st := newStore(t)
		a := newAccount(t, st, " Ana@Example.com ", domain.RoleAdmin, domain.StatusActive)
		require.Equal(t, "ana@example.com", a.Email)

		dup := domain.Account{Email: "ANA@example.com", PasswordHash: "x", Role: domain.RoleAdmin}
		require.ErrorIs(t, st.Accounts().CreateAccount(ctx, &dup), store.ErrAlreadyExists)

		require.NoError(t, st.Accounts().SoftDeleteAccount(ctx, a.ID))
		require.NoError(t, st.Accounts().CreateAccount(ctx, &dup))
	})

	t.Run("eliminado accounts are absent", func(t *testing.T) {
		st := newStore(t)
		a := newAccount(t, st, "gone@example.com", domain.RoleTechnician, domain.StatusActive)
		require.NoError(t, st.Accounts().SoftDeleteAccount(ctx, a.ID))

		_, err := st.Accounts().GetAccountByID(ctx, a.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = st.Accounts().GetAccountByEmail(ctx, a.Email)
		require.ErrorIs(t, err, store.ErrNotFound)
		require.ErrorIs(t, st.Accounts().SetAccountStatus(ctx, a.ID, domain.StatusActive), store.ErrNotFound)

		items, total, err := st.Accounts().ListAccounts(ctx, store.AccountFilter{Page: domain.DefaultPage()})
		require.NoError(t, err)
		require.Zero(t, total)
		require.Empty(t, items)
	})

	t.Run("list paginates newest first", func(t *testing.T) {
		st := newStore(t)
		for i := 0; i < 15; i++ {
			newAccount(t, st, "user"+string(rune('a'+i))+"@example.com", domain.RoleTechnician, domain.StatusActive)
		}
		items, total, err := st.Accounts().ListAccounts(ctx, store.AccountFilter{Page: domain.Page{Page: 2, Limit: 10}})
		require.NoError(t, err)
		require.EqualValues(t, 15, total)
		require.Len(t, items, 5)
		require.Equal(t, "usere@example.com", items[0].Email)
	})

	t.Run("search escapes like wildcards", func(t *testing.T) {
		st := newStore(t)
		newAccount(t, st, "plain@example.com", domain.RoleClient, domain.StatusActive)
		newAccount(t, st, "with_underscore@example.com", domain.RoleClient, domain.StatusActive)

		items, total, err := st.Accounts().ListAccounts(ctx, store.AccountFilter{Search: "_", Page: domain.DefaultPage()})
		require.NoError(t, err)
		require.EqualValues(t, 1, total)
		require.Equal(t, "with_underscore@example.com", items[0].Email)
	})

	t.Run("activation and last login round trip", func(t *testing.T) {
		st := newStore(t)
		a := newAccount(t, st, "new@example.com", domain.RoleValidator, domain.StatusPending)
		require.NoError(t, st.Accounts().ActivateAccount(ctx, a.ID, "hash"))
		at := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
		require.NoError(t, st.Accounts().TouchLastLogin(ctx, a.ID, at))

		got, err := st.Accounts().GetAccountByID(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusActive, got.Status)
		require.True(t, got.EmailVerified)
		require.Equal(t, "hash", got.PasswordHash)
		require.NotNil(t, got.LastLoginAt)
		require.True(t, at.Equal(*got.LastLoginAt))
	})
}

func TestWithTx(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("error rolls back", func(t *testing.T) {
		st := newStore(t)
		boom := errors.New("boom")
		err := st.WithTx(ctx, func(tx store.Tx) error {
			a := domain.Account{Email: "tx@example.com", PasswordHash: "x", Role: domain.RoleAdmin}
			require.NoError(t, tx.Accounts().CreateAccount(ctx, &a))
			return boom
		})
		require.ErrorIs(t, err, boom)
		_, err = st.Accounts().GetAccountByEmail(ctx, "tx@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("nil commits", func(t *testing.T) {
		st := newStore(t)
		require.NoError(t, st.WithTx(ctx, func(tx store.Tx) error {
			a := domain.Account{Email: "tx@example.com", PasswordHash: "x", Role: domain.RoleAdmin}
			return tx.Accounts().CreateAccount(ctx, &a)
		}))
		_, err := st.Accounts().GetAccountByEmail(ctx, "tx@example.com")
		require.NoError(t, err)
	})

	t.Run("nested transactions are refused", func(t *testing.T) {
		st := newStore(t)
		err := st.WithTx(ctx, func(tx store.Tx) error {
			return tx.WithTx(ctx, func(store.Tx) error { return nil })
		})
		require.ErrorIs(t, err, sql.ErrTxDone)
	})

	t.Run("a write made while another transaction is open survives its commit", func(t *testing.T) {
		st := newStore(t)
		target := newAccount(t, st, "target@example.com", domain.RoleTechnician, domain.StatusActive)
		other := newAccount(t, st, "other@example.com", domain.RoleTechnician, domain.StatusActive)

		tx, err := st.Tx(ctx)
		require.NoError(t, err)
		_, err = tx.Accounts().GetAccountByID(ctx, other.ID)
		require.NoError(t, err)

		// The suspension queues behind the open transaction's write lock.
		suspended := make(chan error, 1)
		go func() {
			suspended <- st.Accounts().SetAccountStatus(ctx, target.ID, domain.StatusSuspended)
		}()

		require.NoError(t, tx.Accounts().TouchLastLogin(ctx, other.ID, time.Now()))
		require.NoError(t, tx.Commit())
		require.NoError(t, <-suspended)

		got, err := st.Accounts().GetAccountByID(ctx, target.ID)
		require.NoError(t, err)
		require.Equal(t, domain.StatusSuspended, got.Status)
	})
}

func TestAvailableTechnicians(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newStore(t)

	ready := newTechnician(t, st, "ready@example.com", domain.StatusActive, domain.AvailabilityAvailable)
	newTechnician(t, st, "busy@example.com", domain.StatusActive, domain.AvailabilityBusy)
	newTechnician(t, st, "suspended@example.com", domain.StatusSuspended, domain.AvailabilityAvailable)

	got, err := st.Technicians().ListAvailableTechnicians(ctx, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, ready.ID, got[0].ID)

	comps, _, err := st.Competencies().ListCompetencies(ctx, store.CompetencyFilter{Page: domain.DefaultPage()})
	require.NoError(t, err)
	require.NotEmpty(t, comps)

	got, err = st.Technicians().ListAvailableTechnicians(ctx, []int64{comps[0].ID})
	require.NoError(t, err)
	require.Empty(t, got)

	require.NoError(t, st.Technicians().UpsertTechnicianCompetency(ctx, domain.TechnicianCompetency{
		TechnicianID: ready.ID, CompetencyID: comps[0].ID, CurrentLevel: domain.SkillAdvanced,
	}))
	got, err = st.Technicians().ListAvailableTechnicians(ctx, []int64{comps[0].ID})
	require.NoError(t, err)
	require.Len(t, got, 1)

	t.Run("repeated ids count once", func(t *testing.T) {
		got, err := st.Technicians().ListAvailableTechnicians(ctx, []int64{comps[0].ID, comps[0].ID})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, ready.ID, got[0].ID)
	})

	c, err := st.Competencies().GetCompetencyByID(ctx, comps[0].ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, c.TechnicianCount)
}

func TestUpsertTechnicianCompetency(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newStore(t)
	tech := newTechnician(t, st, "tech@example.com", domain.StatusActive, domain.AvailabilityAvailable)
	comps, _, err := st.Competencies().ListCompetencies(ctx, store.CompetencyFilter{Page: domain.DefaultPage()})
	require.NoError(t, err)

	tc := domain.TechnicianCompetency{TechnicianID: tech.ID, CompetencyID: comps[0].ID, CurrentLevel: domain.SkillBasic}
	require.NoError(t, st.Technicians().UpsertTechnicianCompetency(ctx, tc))
	certified := date(t, "2026-01-31")
	tc.CurrentLevel = domain.SkillExpert
	tc.Certified = true
	tc.CertifiedOn = &certified
	require.NoError(t, st.Technicians().UpsertTechnicianCompetency(ctx, tc))

	held, err := st.Technicians().ListTechnicianCompetencies(ctx, tech.ID)
	require.NoError(t, err)
	require.Len(t, held, 1)
	require.Equal(t, domain.SkillExpert, held[0].CurrentLevel)
	require.True(t, held[0].Certified)
	require.Equal(t, "2026-01-31", held[0].CertifiedOn.String())

	missing := domain.TechnicianCompetency{TechnicianID: tech.ID, CompetencyID: 9999, CurrentLevel: domain.SkillBasic}
	require.ErrorIs(t, st.Technicians().UpsertTechnicianCompetency(ctx, missing), store.ErrNotFound)
}

func TestMostDemandedCompetencies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newStore(t)
	comps, _, err := st.Competencies().ListCompetencies(ctx, store.CompetencyFilter{Page: domain.DefaultPage()})
	require.NoError(t, err)

	a := newTechnician(t, st, "a@example.com", domain.StatusActive, domain.AvailabilityAvailable)
	b := newTechnician(t, st, "b@example.com", domain.StatusActive, domain.AvailabilityAvailable)
	hold := func(tech domain.Technician, comp domain.Competency, certified bool) {
		require.NoError(t, st.Technicians().UpsertTechnicianCompetency(ctx, domain.TechnicianCompetency{
			TechnicianID: tech.ID, CompetencyID: comp.ID, CurrentLevel: domain.SkillBasic, Certified: certified,
		}))
	}
	hold(a, comps[3], false)
	hold(b, comps[3], false)
	hold(a, comps[5], true)
	hold(b, comps[6], false)

	got, err := st.Competencies().MostDemandedCompetencies(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, comps[3].ID, got[0].ID)
	require.EqualValues(t, 2, got[0].TechnicianCount)
	require.Equal(t, comps[5].ID, got[1].ID)
	require.EqualValues(t, 1, *got[1].CertifiedCount)
	require.Equal(t, comps[6].ID, got[2].ID)
}

func TestActivityHoursAreDerived(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newStore(t)

	admin := newAccount(t, st, "admin@example.com", domain.RoleAdmin, domain.StatusActive)
	tech := newTechnician(t, st, "tech@example.com", domain.StatusActive, domain.AvailabilityAvailable)
	clientAcct := newAccount(t, st, "client@example.com", domain.RoleClient, domain.StatusActive)
	client := domain.Client{AccountID: clientAcct.ID, CompanyName: "Acme"}
	require.NoError(t, st.Clients().CreateClient(ctx, &client))

	asg := domain.Assignment{
		TechnicianID: tech.ID, ClientID: client.ID, StartDate: date(t, "2026-10-01"),
		RequiredCompetencies: []int64{1, 2}, CreatedBy: admin.ID,
	}
	require.NoError(t, st.Assignments().CreateAssignment(ctx, &asg))

	act := domain.Activity{
		AssignmentID: asg.ID, TechnicianID: tech.ID, Title: "Deploy", Description: "Rollout",
		Date: date(t, "2026-10-02"), StartTime: "09:00", EndTime: "12:30",
	}
	require.NoError(t, st.Activities().CreateActivity(ctx, &act))

	got, err := st.Activities().GetActivityByID(ctx, act.ID)
	require.NoError(t, err)
	require.InDelta(t, 3.5, got.HoursWorked, 0.001)
	require.Equal(t, "09:00", got.StartTime)
	require.Equal(t, client.ID, got.ClientID)

	gotAsg, err := st.Assignments().GetAssignmentByID(ctx, asg.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, gotAsg.RequiredCompetencies)
	require.Equal(t, "Ana Ruiz", gotAsg.TechnicianName)
}
