package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/store"
)

const activitySelect = `SELECT ac.id, ac.asignacion_id, ac.tecnico_id, ac.titulo, ac.descripcion,
	ac.fecha_actividad, TIME_FORMAT(ac.hora_inicio, '%H:%i'), TIME_FORMAT(ac.hora_fin, '%H:%i'),
	ac.horas_trabajadas, ac.tipo_actividad, ac.ubicacion, ac.estado, ac.observaciones_tecnico,
	ac.fecha_envio, ac.fecha_creacion, ac.fecha_actualizacion,
	t.usuario_id, a.cliente_id, c.usuario_id`

const activityFrom = `
FROM vf_actividades ac
JOIN vf_asignaciones a ON a.id = ac.asignacion_id
JOIN vf_tecnicos_perfiles t ON t.id = ac.tecnico_id
JOIN vf_clientes c ON c.id = a.cliente_id`

type activitiesRepo struct {
	q querier
}

func scanActivity(row rowScanner) (domain.Activity, error) {
	var (
		a               domain.Activity
		location, notes sql.NullString
		hours           sql.NullFloat64
		submitted       sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.AssignmentID, &a.TechnicianID, &a.Title, &a.Description,
		&a.Date, &a.StartTime, &a.EndTime,
		&hours, &a.Type, &location, &a.Status, &notes,
		&submitted, &a.CreatedAt, &a.UpdatedAt,
		&a.TechnicianAccountID, &a.ClientID, &a.ClientAccountID,
	)
	if err != nil {
		return domain.Activity{}, err
	}
	a.HoursWorked = hours.Float64
	a.Location = location.String
	a.TechnicianNotes = notes.String
	a.SubmittedAt = timePtr(submitted)
	return a, nil
}

func (r *activitiesRepo) CreateActivity(ctx context.Context, a *domain.Activity) error {
	if a.Status == "" {
		a.Status = domain.ActivityDraft
	}
	if a.Type == "" {
		a.Type = domain.ActivityDevelopment
	}
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO vf_actividades
			(asignacion_id, tecnico_id, titulo, descripcion, fecha_actividad, hora_inicio, hora_fin,
			 tipo_actividad, ubicacion, estado, observaciones_tecnico)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.AssignmentID, a.TechnicianID, a.Title, a.Description, a.Date.String(), a.StartTime, a.EndTime,
		string(a.Type), nullString(a.Location), string(a.Status), nullString(a.TechnicianNotes),
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

func (r *activitiesRepo) GetActivityByID(ctx context.Context, id int64) (domain.Activity, error) {
	a, err := scanActivity(r.q.QueryRowContext(ctx, activitySelect+activityFrom+` WHERE ac.id = ?`, id))
	if err != nil {
		return domain.Activity{}, mapNotFound(err)
	}
	return a, nil
}

func (r *activitiesRepo) ListActivities(ctx context.Context, f store.ActivityFilter) ([]domain.Activity, int64, error) {
	w := &where{}
	if f.AssignmentID != 0 {
		w.add("ac.asignacion_id = ?", f.AssignmentID)
	}
	if f.TechnicianID != 0 {
		w.add("ac.tecnico_id = ?", f.TechnicianID)
	}
	if f.ClientID != 0 {
		w.add("a.cliente_id = ?", f.ClientID)
	}
	if f.Status != "" {
		w.add("ac.estado = ?", string(f.Status))
	}
	if f.From != nil && !f.From.IsZero() {
		w.add("ac.fecha_actividad >= ?", f.From.String())
	}
	if f.To != nil && !f.To.IsZero() {
		w.add("ac.fecha_actividad <= ?", f.To.String())
	}

	total, err := count(ctx, r.q, `SELECT COUNT(*)`+activityFrom+w.String(), w.args...)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.q.QueryContext(ctx,
		activitySelect+activityFrom+w.String()+
			` ORDER BY ac.fecha_actividad DESC, ac.hora_inicio DESC, ac.id DESC LIMIT ? OFFSET ?`,
		pageArgs(w.args, f.Page)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []domain.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *activitiesRepo) UpdateActivity(ctx context.Context, a domain.Activity) error {
	return requireAffected(r.q.ExecContext(ctx, `
		UPDATE vf_actividades
		SET titulo = ?, descripcion = ?, fecha_actividad = ?, hora_inicio = ?, hora_fin = ?,
			tipo_actividad = ?, ubicacion = ?, observaciones_tecnico = ?
		WHERE id = ?`,
		a.Title, a.Description, a.Date.String(), a.StartTime, a.EndTime,
		string(a.Type), nullString(a.Location), nullString(a.TechnicianNotes), a.ID,
	))
}

func (r *activitiesRepo) SetActivityStatus(ctx context.Context, id int64, status domain.ActivityStatus, submittedAt *time.Time) error {
	return requireAffected(r.q.ExecContext(ctx,
		`UPDATE vf_actividades SET estado = ?, fecha_envio = COALESCE(?, fecha_envio) WHERE id = ?`,
		string(status), nullTime(submittedAt), id))
}

func (r *activitiesRepo) ListHistory(ctx context.Context, activityID int64) ([]domain.HistoryEntry, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT h.id, h.actividad_id, h.validacion_id, h.accion, h.usuario_id, h.estado_anterior,
			h.estado_nuevo, h.comentarios, h.metadatos, h.fecha_accion, CONCAT(u.nombre, ' ', u.apellido)
		FROM vf_historial_validaciones h
		JOIN vf_usuarios u ON u.id = h.usuario_id
		WHERE h.actividad_id = ?
		ORDER BY h.fecha_accion, h.id`, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.HistoryEntry{}
	for rows.Next() {
		var (
			e                    domain.HistoryEntry
			validationID         sql.NullInt64
			prev, next, comments sql.NullString
			metadata             []byte
		)
		if err := rows.Scan(
			&e.ID, &e.ActivityID, &validationID, &e.Action, &e.AccountID, &prev,
			&next, &comments, &metadata, &e.At, &e.AccountName,
		); err != nil {
			return nil, err
		}
		e.ValidationID = int64Ptr(validationID)
		e.PreviousStatus = prev.String
		e.NewStatus = next.String
		e.Comments = comments.String
		e.Metadata = rawJSON(metadata)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *activitiesRepo) AppendHistory(ctx context.Context, e *domain.HistoryEntry) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO vf_historial_validaciones
			(actividad_id, validacion_id, accion, usuario_id, estado_anterior, estado_nuevo, comentarios, metadatos)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ActivityID, nullInt64(e.ValidationID), string(e.Action), e.AccountID,
		nullString(e.PreviousStatus), nullString(e.NewStatus), nullString(e.Comments), nullJSON(e.Metadata),
	)
	if err != nil {
		return mapWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	e.At = time.Now().UTC()
	return nil
}
