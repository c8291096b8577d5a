package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/store"
)

const accountColumns = `id, email, password_hash, nombre, apellido, telefono, rol, estado,
	email_verificado, fecha_ultimo_login, fecha_creacion, fecha_actualizacion, creado_por, metadatos`

// live filters out soft deleted rows. Every account read goes through it.
const live = `estado <> 'eliminado'`

type accountsRepo struct {
	q querier
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		a         domain.Account
		phone     sql.NullString
		lastLogin sql.NullTime
		createdBy sql.NullInt64
		meta      []byte
	)
	err := row.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName, &phone,
		&a.Role, &a.Status, &a.EmailVerified, &lastLogin, &a.CreatedAt, &a.UpdatedAt,
		&createdBy, &meta,
	)
	if err != nil {
		return domain.Account{}, err
	}
	a.Phone = phone.String
	a.LastLoginAt = timePtr(lastLogin)
	a.CreatedBy = int64Ptr(createdBy)
	a.Metadata = rawJSON(meta)
	return a, nil
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a *domain.Account) error {
	a.Email = domain.NormalizeEmail(a.Email)
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO vf_usuarios
			(email, password_hash, nombre, apellido, telefono, rol, estado, email_verificado, creado_por, metadatos)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Email, a.PasswordHash, a.FirstName, a.LastName, nullString(a.Phone),
		string(a.Role), string(a.Status), a.EmailVerified, nullInt64(a.CreatedBy), nullJSON(a.Metadata),
	)
	if err != nil {
		return mapWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id int64) (domain.Account, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM vf_usuarios WHERE id = ? AND `+live, id)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM vf_usuarios WHERE email = ? AND `+live,
		domain.NormalizeEmail(email))
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) ListAccounts(ctx context.Context, f store.AccountFilter) ([]domain.Account, int64, error) {
	w := &where{}
	w.add(live)
	if f.Role != "" {
		w.add("rol = ?", string(f.Role))
	}
	if f.Status != "" {
		w.add("estado = ?", string(f.Status))
	}
	w.like(f.Search, "nombre", "apellido", "email")

	total, err := count(ctx, r.q, `SELECT COUNT(*) FROM vf_usuarios`+w.String(), w.args...)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM vf_usuarios`+w.String()+
			` ORDER BY fecha_creacion DESC, id DESC LIMIT ? OFFSET ?`,
		pageArgs(w.args, f.Page)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []domain.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *accountsRepo) UpdateAccount(ctx context.Context, a domain.Account) error {
	return requireAffected(r.q.ExecContext(ctx, `
		UPDATE vf_usuarios
		SET nombre = ?, apellido = ?, telefono = ?, rol = ?, estado = ?, metadatos = ?
		WHERE id = ? AND `+live,
		a.FirstName, a.LastName, nullString(a.Phone), string(a.Role), string(a.Status), nullJSON(a.Metadata), a.ID,
	))
}

func (r *accountsRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return requireAffected(r.q.ExecContext(ctx,
		`UPDATE vf_usuarios SET password_hash = ? WHERE id = ? AND `+live, hash, id))
}

func (r *accountsRepo) SetAccountStatus(ctx context.Context, id int64, status domain.Status) error {
	return requireAffected(r.q.ExecContext(ctx,
		`UPDATE vf_usuarios SET estado = ? WHERE id = ? AND `+live, string(status), id))
}

func (r *accountsRepo) ActivateAccount(ctx context.Context, id int64, hash string) error {
	return requireAffected(r.q.ExecContext(ctx, `
		UPDATE vf_usuarios
		SET password_hash = ?, estado = 'activo', email_verificado = TRUE
		WHERE id = ? AND `+live, hash, id))
}

func (r *accountsRepo) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return requireAffected(r.q.ExecContext(ctx,
		`UPDATE vf_usuarios SET fecha_ultimo_login = ? WHERE id = ? AND `+live, at.UTC(), id))
}

func (r *accountsRepo) SoftDeleteAccount(ctx context.Context, id int64) error {
	return requireAffected(r.q.ExecContext(ctx,
		`UPDATE vf_usuarios SET estado = 'eliminado' WHERE id = ? AND `+live, id))
}

func (r *accountsRepo) CountAdmins(ctx context.Context, status domain.Status) (int64, error) {
	if status == "" {
		return count(ctx, r.q, `SELECT COUNT(*) FROM vf_usuarios WHERE rol = 'admin' AND `+live)
	}
	return count(ctx, r.q, `SELECT COUNT(*) FROM vf_usuarios WHERE rol = 'admin' AND estado = ?`, string(status))
}

func (r *accountsRepo) AccountStats(ctx context.Context) (domain.Stats, error) {
	return stats(ctx, r.q, `SELECT COUNT(*) FROM vf_usuarios WHERE `+live, map[string]string{
		"rol":    `SELECT rol, COUNT(*) FROM vf_usuarios WHERE ` + live + ` GROUP BY rol`,
		"estado": `SELECT estado, COUNT(*) FROM vf_usuarios WHERE ` + live + ` GROUP BY estado`,
	})
}
