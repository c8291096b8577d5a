package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/store"
)

const assignmentSelect = `SELECT a.id, a.tecnico_id, a.cliente_id, a.proyecto_nombre, a.descripcion,
	a.fecha_inicio, a.fecha_fin_estimada, a.fecha_fin_real, a.estado, a.tarifa_acordada, a.moneda,
	a.horas_estimadas, a.competencias_requeridas, a.observaciones, a.creado_por,
	a.fecha_creacion, a.fecha_actualizacion,
	t.usuario_id, c.usuario_id, CONCAT(u.nombre, ' ', u.apellido), c.nombre_empresa
FROM vf_asignaciones a
JOIN vf_tecnicos_perfiles t ON t.id = a.tecnico_id
JOIN vf_usuarios u ON u.id = t.usuario_id
JOIN vf_clientes c ON c.id = a.cliente_id`

type assignmentsRepo struct {
	q querier
}

func scanAssignment(row rowScanner) (domain.Assignment, error) {
	var (
		a                           domain.Assignment
		project, description, notes sql.NullString
		currency                    sql.NullString
		estimatedEnd, actualEnd     domain.Date
		rate                        sql.NullFloat64
		hours                       sql.NullInt64
		required                    []byte
	)
	err := row.Scan(
		&a.ID, &a.TechnicianID, &a.ClientID, &project, &description,
		&a.StartDate, &estimatedEnd, &actualEnd, &a.Status, &rate, &currency,
		&hours, &required, &notes, &a.CreatedBy,
		&a.CreatedAt, &a.UpdatedAt,
		&a.TechnicianAccountID, &a.ClientAccountID, &a.TechnicianName, &a.CompanyName,
	)
	if err != nil {
		return domain.Assignment{}, err
	}
	a.ProjectName = project.String
	a.Description = description.String
	a.EstimatedEndDate = datePtr(estimatedEnd)
	a.ActualEndDate = datePtr(actualEnd)
	a.AgreedRate = floatPtr(rate)
	a.Currency = currency.String
	a.EstimatedHours = intPtr(hours)
	a.Notes = notes.String
	if len(required) > 0 {
		if err := json.Unmarshal(required, &a.RequiredCompetencies); err != nil {
			return domain.Assignment{}, fmt.Errorf("decode competencias_requeridas: %w", err)
		}
	}
	return a, nil
}

func encodeCompetencies(ids []int64) (any, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *assignmentsRepo) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	if a.Status == "" {
		a.Status = domain.AssignmentActive
	}
	if a.Currency == "" {
		a.Currency = "EUR"
	}
	required, err := encodeCompetencies(a.RequiredCompetencies)
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO vf_asignaciones
			(tecnico_id, cliente_id, proyecto_nombre, descripcion, fecha_inicio, fecha_fin_estimada,
			 estado, tarifa_acordada, moneda, horas_estimadas, competencias_requeridas, observaciones, creado_por)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.TechnicianID, a.ClientID, nullString(a.ProjectName), nullString(a.Description),
		a.StartDate.String(), nullDate(a.EstimatedEndDate), string(a.Status), nullFloat(a.AgreedRate),
		a.Currency, nullInt(a.EstimatedHours), required, nullString(a.Notes), a.CreatedBy,
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

func (r *assignmentsRepo) GetAssignmentByID(ctx context.Context, id int64) (domain.Assignment, error) {
	a, err := scanAssignment(r.q.QueryRowContext(ctx, assignmentSelect+` WHERE a.id = ?`, id))
	if err != nil {
		return domain.Assignment{}, mapNotFound(err)
	}
	return a, nil
}

func (r *assignmentsRepo) ListAssignments(ctx context.Context, f store.AssignmentFilter) ([]domain.Assignment, int64, error) {
	w := &where{}
	if f.TechnicianID != 0 {
		w.add("a.tecnico_id = ?", f.TechnicianID)
	}
	if f.ClientID != 0 {
		w.add("a.cliente_id = ?", f.ClientID)
	}
	if f.Status != "" {
		w.add("a.estado = ?", string(f.Status))
	}

	total, err := count(ctx, r.q, `SELECT COUNT(*) FROM vf_asignaciones a`+w.String(), w.args...)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.q.QueryContext(ctx,
		assignmentSelect+w.String()+` ORDER BY a.fecha_inicio DESC, a.id DESC LIMIT ? OFFSET ?`,
		pageArgs(w.args, f.Page)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []domain.Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *assignmentsRepo) UpdateAssignment(ctx context.Context, a domain.Assignment) error {
	required, err := encodeCompetencies(a.RequiredCompetencies)
	if err != nil {
		return err
	}
	return requireAffected(r.q.ExecContext(ctx, `
		UPDATE vf_asignaciones
		SET proyecto_nombre = ?, descripcion = ?, fecha_inicio = ?, fecha_fin_estimada = ?,
			tarifa_acordada = ?, moneda = ?, horas_estimadas = ?, competencias_requeridas = ?, observaciones = ?
		WHERE id = ?`,
		nullString(a.ProjectName), nullString(a.Description), a.StartDate.String(), nullDate(a.EstimatedEndDate),
		nullFloat(a.AgreedRate), nullString(a.Currency), nullInt(a.EstimatedHours), required,
		nullString(a.Notes), a.ID,
	))
}

func (r *assignmentsRepo) SetAssignmentStatus(ctx context.Context, id int64, status domain.AssignmentStatus, actualEnd *domain.Date) error {
	return requireAffected(r.q.ExecContext(ctx,
		`UPDATE vf_asignaciones SET estado = ?, fecha_fin_real = COALESCE(?, fecha_fin_real) WHERE id = ?`,
		string(status), nullDate(actualEnd), id))
}

func (r *assignmentsRepo) AssignmentStats(ctx context.Context) (domain.Stats, error) {
	return stats(ctx, r.q, `SELECT COUNT(*) FROM vf_asignaciones`, map[string]string{
		"estado": `SELECT estado, COUNT(*) FROM vf_asignaciones GROUP BY estado`,
	})
}
