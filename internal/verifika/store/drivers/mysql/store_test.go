package mysql

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/store"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewStore(db), mock
}

var accountRowColumns = []string{
	"id", "email", "password_hash", "nombre", "apellido", "telefono", "rol", "estado",
	"email_verificado", "fecha_ultimo_login", "fecha_creacion", "fecha_actualizacion", "creado_por", "metadatos",
}

func TestGetAccountByEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes email and skips deleted rows", func(t *testing.T) {
		s, mock := newMockStore(t)
		now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		mock.ExpectQuery(`FROM vf_usuarios WHERE email = \? AND estado <> 'eliminado'`).
			WithArgs("admin@verifika.com").
			WillReturnRows(sqlmock.NewRows(accountRowColumns).AddRow(
				1, "admin@verifika.com", "$2a$10$hash", "Admin", "Verifika", nil, "admin", "activo",
				true, nil, now, now, nil, nil,
			))

		a, err := s.Accounts().GetAccountByEmail(ctx, "  Admin@Verifika.COM ")
		require.NoError(t, err)
		require.Equal(t, int64(1), a.ID)
		require.Equal(t, domain.RoleAdmin, a.Role)
		require.Equal(t, domain.StatusActive, a.Status)
		require.Nil(t, a.LastLoginAt)
		require.Nil(t, a.CreatedBy)
		require.Empty(t, a.Phone)
	})

	t.Run("missing row maps to not found", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`FROM vf_usuarios WHERE email = \? AND estado <> 'eliminado'`).
			WithArgs("ghost@verifika.com").
			WillReturnError(sql.ErrNoRows)

		_, err := s.Accounts().GetAccountByEmail(ctx, "ghost@verifika.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestGetAccountByIDSkipsDeleted(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM vf_usuarios WHERE id = \? AND estado <> 'eliminado'`).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.Accounts().GetAccountByID(context.Background(), 7)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO vf_usuarios`).
		WillReturnError(&gomysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b.c' for key 'uk_email_activo'"})

	err := s.Accounts().CreateAccount(context.Background(), &domain.Account{
		Email: "A@B.c", PasswordHash: "x", FirstName: "A", LastName: "B",
		Role: domain.RoleTechnician, Status: domain.StatusPending,
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestCreateAccountAssignsID(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO vf_usuarios`).
		WithArgs("new@verifika.com", "hash", "Nuevo", "Usuario", nil, "cliente", "pendiente", false, nil, nil).
		WillReturnResult(sqlmock.NewResult(42, 1))

	a := &domain.Account{
		Email: "New@Verifika.com", PasswordHash: "hash", FirstName: "Nuevo", LastName: "Usuario",
		Role: domain.RoleClient, Status: domain.StatusPending,
	}
	require.NoError(t, s.Accounts().CreateAccount(context.Background(), a))
	require.Equal(t, int64(42), a.ID)
	require.Equal(t, "new@verifika.com", a.Email)
	require.False(t, a.CreatedAt.IsZero())
}

func TestListAccountsPaginates(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM vf_usuarios WHERE estado <> 'eliminado' AND rol = \?`).
		WithArgs("tecnico").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(15))

	rows := sqlmock.NewRows(accountRowColumns)
	for i := 11; i <= 15; i++ {
		rows.AddRow(i, "t@x.com", "h", "T", "X", nil, "tecnico", "activo", true, nil, now, now, nil, nil)
	}
	mock.ExpectQuery(`ORDER BY fecha_creacion DESC, id DESC LIMIT \? OFFSET \?`).
		WithArgs("tecnico", 10, 10).
		WillReturnRows(rows)

	got, total, err := s.Accounts().ListAccounts(context.Background(), store.AccountFilter{
		Role: domain.RoleTechnician,
		Page: domain.Page{Page: 2, Limit: 10},
	})
	require.NoError(t, err)
	require.Equal(t, int64(15), total)
	require.Len(t, got, 5)
}

func TestUpdateWithoutMatchIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`UPDATE vf_usuarios SET estado = \? WHERE id = \? AND estado <> 'eliminado'`).
		WithArgs("suspendido", int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Accounts().SetAccountStatus(context.Background(), 99, domain.StatusSuspended)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE vf_usuarios SET estado = 'eliminado'`).
			WithArgs(int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := s.WithTx(ctx, func(tx store.Tx) error {
			return tx.Accounts().SoftDeleteAccount(ctx, 3)
		})
		require.NoError(t, err)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := s.WithTx(ctx, func(tx store.Tx) error { return boom })
		require.ErrorIs(t, err, boom)
	})

	t.Run("nested transactions are refused", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := s.WithTx(ctx, func(tx store.Tx) error {
			_, err := tx.Tx(ctx)
			return err
		})
		require.ErrorIs(t, err, sql.ErrTxDone)
	})
}

var technicianRowColumns = []string{
	"id", "usuario_id", "numero_identificacion", "fecha_nacimiento", "direccion",
	"ciudad", "pais", "experiencia_anos", "nivel_experiencia", "disponibilidad", "tarifa_por_hora",
	"moneda", "biografia", "fecha_creacion", "fecha_actualizacion",
	"email", "nombre", "apellido", "telefono", "estado",
}

func TestListAvailableTechnicians(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("only active accounts that are available", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`WHERE u.estado = 'activo' AND t.disponibilidad = 'disponible' ORDER BY`).
			WillReturnRows(sqlmock.NewRows(technicianRowColumns).AddRow(
				5, 12, nil, nil, nil, "Madrid", "España", 4, "senior", "disponible", 45.5,
				"EUR", nil, now, now, "tec@verifika.com", "Ana", "López", nil, "activo",
			))

		got, err := s.Technicians().ListAvailableTechnicians(ctx, nil)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, domain.AvailabilityAvailable, got[0].Availability)
		require.NotNil(t, got[0].HourlyRate)
		require.Equal(t, 45.5, *got[0].HourlyRate)
		require.Nil(t, got[0].BirthDate)
	})

	t.Run("requires every listed competency", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`tc.competencia_id IN \(\?, \?\)\s+GROUP BY tc.tecnico_id HAVING COUNT\(DISTINCT tc.competencia_id\) = \?`).
			WithArgs(int64(1), int64(4), 2).
			WillReturnRows(sqlmock.NewRows(technicianRowColumns))

		got, err := s.Technicians().ListAvailableTechnicians(ctx, []int64{1, 4})
		require.NoError(t, err)
		require.Empty(t, got)
	})
}

func TestAssignmentDecodesRequiredCompetencies(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)FROM vf_asignaciones a\s+JOIN vf_tecnicos_perfiles t .* WHERE a.id = \?`).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tecnico_id", "cliente_id", "proyecto_nombre", "descripcion",
			"fecha_inicio", "fecha_fin_estimada", "fecha_fin_real", "estado", "tarifa_acordada", "moneda",
			"horas_estimadas", "competencias_requeridas", "observaciones", "creado_por",
			"fecha_creacion", "fecha_actualizacion",
			"tec_usuario", "cli_usuario", "tecnico_nombre", "nombre_empresa",
		}).AddRow(
			8, 5, 3, "Migración", nil,
			start, nil, nil, "activa", nil, "EUR",
			120, []byte("[1,4]"), nil, 1,
			now, now,
			12, 20, "Ana López", "Acme SL",
		))

	a, err := s.Assignments().GetAssignmentByID(context.Background(), 8)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 4}, a.RequiredCompetencies)
	require.Equal(t, "2026-03-01", a.StartDate.String())
	require.Nil(t, a.EstimatedEndDate)
	require.Equal(t, int64(12), a.TechnicianAccountID)
	require.Equal(t, int64(20), a.ClientAccountID)
	require.NotNil(t, a.EstimatedHours)
	require.Equal(t, 120, *a.EstimatedHours)
}

func TestForeignKeyViolationIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO vf_asignaciones`).
		WillReturnError(&gomysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})

	err := s.Assignments().CreateAssignment(context.Background(), &domain.Assignment{
		TechnicianID: 1, ClientID: 999, StartDate: domain.NewDate(2026, time.March, 1), CreatedBy: 1,
	})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWhereBuilder(t *testing.T) {
	w := &where{}
	require.Empty(t, w.String())

	w.add("a = ?", 1)
	w.like("50%_off", "x", "y")
	require.Equal(t, " WHERE a = ? AND (x LIKE ? OR y LIKE ?)", w.String())
	require.Equal(t, []any{1, `%50\%\_off%`, `%50\%\_off%`}, w.args)

	w.like("   ", "z")
	require.Len(t, w.args, 3)

	require.Equal(t, "?, ?, ?", placeholders(3))
	require.Empty(t, placeholders(0))
}

func TestDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 3306, User: "verifika", Password: "s3cret", Name: "verifika_db"}

	dsn := cfg.DSN(false)
	require.Contains(t, dsn, "verifika:s3cret@tcp(db:3306)/verifika_db")
	require.Contains(t, dsn, "parseTime=true")
	require.Contains(t, dsn, "clientFoundRows=true")
	require.NotContains(t, dsn, "multiStatements")

	require.Contains(t, cfg.DSN(true), "multiStatements=true")
}
