package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/store"
)

type team struct {
	admin      domain.Account
	validator  domain.Account
	techAcct   domain.Account
	tech       domain.Technician
	clientAcct domain.Account
	client     domain.Client
}

// activate redeems an invitation and returns the active account.
func (e *env) activate(t *testing.T, email, invitation string) domain.Account {
	t.Helper()
	acct, err := e.auth.Activate(context.Background(), TokenPasswordInput{Email: email, Token: invitation, Password: "password1"})
	require.NoError(t, err)
	return acct
}

func (e *env) newTeam(t *testing.T) team {
	t.Helper()
	ctx := context.Background()
	var tm team
	tm.admin = e.seedAccount(t, "admin@verifika.com", "admin123", domain.RoleAdmin, domain.StatusActive)
	tm.validator = e.seedAccount(t, "val@verifika.com", "admin123", domain.RoleValidator, domain.StatusActive)

	ct, err := e.technicians.Create(ctx, actorOf(tm.admin), CreateTechnicianInput{
		Email: "tec@verifika.com", FirstName: "Juan", LastName: "Pérez",
		TechnicianProfileInput: TechnicianProfileInput{City: ptr("Madrid")},
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, ct.Technician.AccountStatus)
	tm.techAcct = e.activate(t, "tec@verifika.com", ct.Invitation)
	tm.tech, err = e.technicians.Get(ctx, ct.Technician.ID)
	require.NoError(t, err)

	cc, err := e.clients.Create(ctx, actorOf(tm.admin), CreateClientInput{
		Email: "cli@acme.es", FirstName: "Laura", LastName: "Gómez",
		CompanyInput: CompanyInput{CompanyName: ptr("Acme SL"), CIF: ptr("B12345678")},
	})
	require.NoError(t, err)
	tm.clientAcct = e.activate(t, "cli@acme.es", cc.Invitation)
	tm.client = cc.Client
	return tm
}

func TestTechnicianOwnership(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	tm := e.newTeam(t)

	require.NoError(t, e.technicians.CheckOwner(ctx, tm.tech.ID, tm.techAcct.ID))
	require.ErrorIs(t, e.technicians.CheckOwner(ctx, tm.tech.ID, tm.clientAcct.ID), ErrForbidden)
	require.ErrorIs(t, e.technicians.CheckOwner(ctx, tm.tech.ID+1000, tm.techAcct.ID), ErrForbidden)

	_, err := e.technicians.Create(ctx, actorOf(tm.admin), CreateTechnicianInput{
		Email: "TEC@verifika.com", FirstName: "Otro", LastName: "Técnico",
	})
	require.ErrorIs(t, err, ErrEmailTaken)

	_, err = e.technicians.Create(ctx, actorOf(tm.validator), CreateTechnicianInput{
		Email: "nuevo@verifika.com", FirstName: "Nuevo", LastName: "Técnico",
	})
	require.ErrorIs(t, err, ErrForbidden)
	_, err = e.clients.Create(ctx, actorOf(tm.techAcct), CreateClientInput{
		Email: "otro@acme.es", FirstName: "Otro", LastName: "Cliente",
		CompanyInput: CompanyInput{CompanyName: ptr("Otra SL"), CIF: ptr("B87654321")},
	})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestSuspensionHidesFromAvailable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	tm := e.newTeam(t)

	avail, err := e.technicians.Available(ctx, nil)
	require.NoError(t, err)
	require.Len(t, avail, 1)

	_, err = e.technicians.SetStatus(ctx, tm.tech.ID, StatusInput{Status: domain.StatusSuspended})
	require.NoError(t, err)
	avail, err = e.technicians.Available(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, avail)

	_, err = e.technicians.SetStatus(ctx, tm.tech.ID, StatusInput{Status: domain.StatusActive})
	require.NoError(t, err)
	avail, err = e.technicians.Available(ctx, nil)
	require.NoError(t, err)
	require.Len(t, avail, 1)
}

func TestCompetencyCatalogue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	tm := e.newTeam(t)

	comp, err := e.competencies.Create(ctx, CompetencyInput{Name: ptr("Kubernetes"), Category: ptr("DevOps")})
	require.NoError(t, err)
	require.True(t, comp.Active)
	require.Equal(t, domain.SkillBasic, comp.RequiredLevel)

	_, err = e.competencies.Create(ctx, CompetencyInput{Name: ptr("Kubernetes")})
	require.ErrorIs(t, err, ErrDuplicate)

	held, err := e.technicians.UpsertCompetency(ctx, tm.tech.ID, actorOf(tm.admin), CompetencyAssignmentInput{
		CompetencyID: comp.ID, CurrentLevel: domain.SkillAdvanced,
	})
	require.NoError(t, err)
	require.Len(t, held, 1)
	require.Equal(t, tm.admin.ID, *held[0].ValidatedBy)

	err = e.competencies.Delete(ctx, comp.ID)
	require.ErrorIs(t, err, ErrBusinessRule)
	require.NotEmpty(t, Reason(err))

	withHolders, err := e.competencies.Get(ctx, actorOf(tm.admin), comp.ID)
	require.NoError(t, err)
	require.Len(t, withHolders.Holders, 1)
	plain, err := e.competencies.Get(ctx, actorOf(tm.techAcct), comp.ID)
	require.NoError(t, err)
	require.Empty(t, plain.Holders)

	require.NoError(t, e.technicians.RemoveCompetency(ctx, tm.tech.ID, comp.ID))
	require.NoError(t, e.competencies.Delete(ctx, comp.ID))

	inactive, err := e.competencies.Create(ctx, CompetencyInput{Name: ptr("COBOL")})
	require.NoError(t, err)
	_, err = e.competencies.SetActive(ctx, inactive.ID, ActiveInput{Active: ptr(false)})
	require.NoError(t, err)
	_, err = e.technicians.UpsertCompetency(ctx, tm.tech.ID, actorOf(tm.techAcct), CompetencyAssignmentInput{CompetencyID: inactive.ID})
	require.ErrorIs(t, err, ErrBusinessRule)
}

func TestClients(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	tm := e.newTeam(t)

	require.NoError(t, e.clients.CheckOwner(ctx, tm.client.ID, tm.clientAcct.ID))
	require.ErrorIs(t, e.clients.CheckOwner(ctx, tm.client.ID, tm.techAcct.ID), ErrForbidden)

	_, err := e.clients.Create(ctx, actorOf(tm.admin), CreateClientInput{
		Email: "other@acme.es", FirstName: "Otro", LastName: "Cliente",
		CompanyInput: CompanyInput{CompanyName: ptr("Acme Dos"), CIF: ptr("B12345678")},
	})
	require.ErrorIs(t, err, ErrDuplicate)

	updated, err := e.clients.Update(ctx, tm.client.ID, UpdateClientInput{
		ProfileInput: ProfileInput{Phone: ptr("+34 600 000 000")},
		CompanyInput: CompanyInput{City: ptr("Sevilla")},
	})
	require.NoError(t, err)
	require.Equal(t, "Sevilla", updated.City)
	require.Equal(t, "+34 600 000 000", updated.Phone)
}

func TestAssignmentLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	e.assignments.Now = func() time.Time { return time.Date(2026, time.June, 30, 15, 0, 0, 0, time.UTC) }
	tm := e.newTeam(t)
	admin := actorOf(tm.admin)

	start := domain.NewDate(2026, time.June, 1)
	before := domain.NewDate(2026, time.May, 1)
	_, err := e.assignments.Create(ctx, admin, AssignmentInput{
		TechnicianID: &tm.tech.ID, ClientID: &tm.client.ID, StartDate: &start, EstimatedEndDate: &before,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "fecha_fin_estimada")

	a, err := e.assignments.Create(ctx, admin, AssignmentInput{
		TechnicianID: &tm.tech.ID, ClientID: &tm.client.ID, StartDate: &start, ProjectName: ptr("Portal"),
	})
	require.NoError(t, err)
	require.Equal(t, domain.AssignmentActive, a.Status)
	require.Equal(t, "EUR", a.Currency)

	t.Run("scoping", func(t *testing.T) {
		_, err := e.assignments.Get(ctx, actorOf(tm.techAcct), a.ID)
		require.NoError(t, err)
		_, err = e.assignments.Get(ctx, actorOf(tm.clientAcct), a.ID)
		require.NoError(t, err)

		stranger := e.seedAccount(t, "stranger@verifika.com", "password1", domain.RoleTechnician, domain.StatusActive)
		_, err = e.assignments.Get(ctx, actorOf(stranger), a.ID)
		require.ErrorIs(t, err, ErrForbidden)

		items, page, err := e.assignments.List(ctx, actorOf(tm.clientAcct), store.AssignmentFilter{Page: domain.DefaultPage()})
		require.NoError(t, err)
		require.Len(t, items, 1)
		require.EqualValues(t, 1, page.Total)
	})

	t.Run("transitions", func(t *testing.T) {
		a, err := e.assignments.SetStatus(ctx, admin, a.ID, AssignmentStatusInput{Status: domain.AssignmentPaused})
		require.NoError(t, err)
		require.Equal(t, domain.AssignmentPaused, a.Status)

		a, err = e.assignments.SetStatus(ctx, admin, a.ID, AssignmentStatusInput{Status: domain.AssignmentFinished})
		require.NoError(t, err)
		require.NotNil(t, a.ActualEndDate)
		require.Equal(t, "2026-06-30", a.ActualEndDate.String())

		_, err = e.assignments.SetStatus(ctx, admin, a.ID, AssignmentStatusInput{Status: domain.AssignmentActive})
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("inactive technicians cannot be assigned", func(t *testing.T) {
		_, err := e.technicians.SetStatus(ctx, tm.tech.ID, StatusInput{Status: domain.StatusInactive})
		require.NoError(t, err)
		_, err = e.assignments.Create(ctx, admin, AssignmentInput{
			TechnicianID: &tm.tech.ID, ClientID: &tm.client.ID, StartDate: &start,
		})
		require.ErrorIs(t, err, ErrBusinessRule)
	})
}

func TestActivityValidationFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	tm := e.newTeam(t)
	tech := actorOf(tm.techAcct)
	validator := actorOf(tm.validator)

	start := domain.NewDate(2026, time.June, 1)
	asg, err := e.assignments.Create(ctx, actorOf(tm.admin), AssignmentInput{
		TechnicianID: &tm.tech.ID, ClientID: &tm.client.ID, StartDate: &start,
	})
	require.NoError(t, err)

	day := domain.NewDate(2026, time.June, 2)
	in := ActivityInput{
		AssignmentID: &asg.ID, Title: ptr("Migración"), Description: ptr("Migración de datos"),
		Date: &day, StartTime: ptr("10:00"), EndTime: ptr("09:00"),
	}
	_, err = e.activities.Create(ctx, tech, in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "hora_fin")

	_, err = e.activities.Create(ctx, validator, in)
	require.ErrorIs(t, err, ErrForbidden)

	in.EndTime = ptr("13:30")
	act, err := e.activities.Create(ctx, tech, in)
	require.NoError(t, err)
	require.Equal(t, domain.ActivityDraft, act.Status)
	require.InDelta(t, 3.5, act.HoursWorked, 0.001)

	_, err = e.validations.Create(ctx, validator, ValidationInput{ActivityID: act.ID, Status: domain.ValidationApproved})
	require.ErrorIs(t, err, ErrBusinessRule)

	act, err = e.activities.SetStatus(ctx, tech, act.ID, ActivityStatusInput{Status: domain.ActivitySubmitted})
	require.NoError(t, err)
	require.NotNil(t, act.SubmittedAt)

	_, err = e.activities.Update(ctx, tech, act.ID, ActivityInput{Title: ptr("Otro título")})
	require.ErrorIs(t, err, ErrBusinessRule)

	_, err = e.validations.Create(ctx, validator, ValidationInput{ActivityID: act.ID, Status: domain.ValidationRejected})
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "comentarios")

	v, err := e.validations.Create(ctx, validator, ValidationInput{ActivityID: act.ID, Status: domain.ValidationPendingReview})
	require.NoError(t, err)
	act, err = e.activities.Get(ctx, tech, act.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ActivitySubmitted, act.Status)

	_, err = e.validations.Update(ctx, actorOf(tm.admin), v.ID, UpdateValidationInput{Comments: ptr("no soy el autor")})
	require.ErrorIs(t, err, ErrForbidden)

	v, err = e.validations.SetStatus(ctx, validator, v.ID, ValidationStatusInput{Status: domain.ValidationApproved})
	require.NoError(t, err)
	require.Equal(t, domain.ValidationApproved, v.Status)

	act, err = e.activities.Get(ctx, actorOf(tm.clientAcct), act.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ActivityValidated, act.Status)

	history, err := e.activities.History(ctx, tech, act.ID)
	require.NoError(t, err)
	actions := make([]domain.HistoryAction, len(history))
	for i, h := range history {
		actions[i] = h.Action
	}
	require.Equal(t, []domain.HistoryAction{
		domain.HistorySubmitted, domain.HistoryReviewRequested, domain.HistoryApproved,
	}, actions)

	_, err = e.validations.SetStatus(ctx, validator, v.ID, ValidationStatusInput{Status: domain.ValidationRejected})
	require.ErrorIs(t, err, ErrInvalidTransition)
}
