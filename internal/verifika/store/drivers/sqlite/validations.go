package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/store"
)

const validationSelect = `SELECT v.id, v.actividad_id, v.validador_id, v.estado, v.comentarios,
	v.horas_aprobadas, v.monto_aprobado, v.fecha_validacion,
	u.nombre || ' ' || u.apellido, ac.titulo
FROM vf_validaciones v
JOIN vf_usuarios u ON u.id = v.validador_id
JOIN vf_actividades ac ON ac.id = v.actividad_id`

type validationsRepo struct {
	q querier
}

func scanValidation(row rowScanner) (domain.Validation, error) {
	var (
		v             domain.Validation
		comments      sql.NullString
		hours, amount sql.NullFloat64
	)
	err := row.Scan(
		&v.ID, &v.ActivityID, &v.ValidatorID, &v.Status, &comments,
		&hours, &amount, &v.ValidatedAt,
		&v.ValidatorName, &v.ActivityTitle,
	)
	if err != nil {
		return domain.Validation{}, err
	}
	v.Comments = comments.String
	v.ApprovedHours = floatPtr(hours)
	v.ApprovedAmount = floatPtr(amount)
	return v, nil
}

func (r *validationsRepo) CreateValidation(ctx context.Context, v *domain.Validation) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO vf_validaciones
			(actividad_id, validador_id, estado, comentarios, horas_aprobadas, monto_aprobado)
		VALUES (?, ?, ?, ?, ?, ?)`,
		v.ActivityID, v.ValidatorID, string(v.Status), nullString(v.Comments),
		nullFloat(v.ApprovedHours), nullFloat(v.ApprovedAmount),
	)
	if err != nil {
		return mapWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = id
	v.ValidatedAt = time.Now().UTC()
	return nil
}

func (r *validationsRepo) GetValidationByID(ctx context.Context, id int64) (domain.Validation, error) {
	v, err := scanValidation(r.q.QueryRowContext(ctx, validationSelect+` WHERE v.id = ?`, id))
	if err != nil {
		return domain.Validation{}, mapNotFound(err)
	}
	return v, nil
}

func (r *validationsRepo) ListValidations(ctx context.Context, f store.ValidationFilter) ([]domain.Validation, int64, error) {
	w := &where{}
	if f.ActivityID != 0 {
		w.add("v.actividad_id = ?", f.ActivityID)
	}
	if f.ValidatorID != 0 {
		w.add("v.validador_id = ?", f.ValidatorID)
	}
	if f.Status != "" {
		w.add("v.estado = ?", string(f.Status))
	}

	total, err := count(ctx, r.q, `SELECT COUNT(*) FROM vf_validaciones v`+w.String(), w.args...)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.q.QueryContext(ctx,
		validationSelect+w.String()+` ORDER BY v.fecha_validacion DESC, v.id DESC LIMIT ? OFFSET ?`,
		pageArgs(w.args, f.Page)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []domain.Validation{}
	for rows.Next() {
		v, err := scanValidation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

func (r *validationsRepo) UpdateValidation(ctx context.Context, v domain.Validation) error {
	return requireAffected(r.q.ExecContext(ctx, `
		UPDATE vf_validaciones
		SET estado = ?, comentarios = ?, horas_aprobadas = ?, monto_aprobado = ?
		WHERE id = ?`,
		string(v.Status), nullString(v.Comments), nullFloat(v.ApprovedHours), nullFloat(v.ApprovedAmount), v.ID,
	))
}

func (r *validationsRepo) SetValidationStatus(ctx context.Context, id int64, status domain.ValidationStatus) error {
	return requireAffected(r.q.ExecContext(ctx,
		`UPDATE vf_validaciones SET estado = ? WHERE id = ?`, string(status), id))
}
