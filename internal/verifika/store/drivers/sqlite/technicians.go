package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/store"
)

const technicianSelect = `SELECT t.id, t.usuario_id, t.numero_identificacion, t.fecha_nacimiento, t.direccion,
	t.ciudad, t.pais, t.experiencia_anos, t.nivel_experiencia, t.disponibilidad, t.tarifa_por_hora,
	t.moneda, t.biografia, t.fecha_creacion, t.fecha_actualizacion,
	u.email, u.nombre, u.apellido, u.telefono, u.estado
FROM vf_tecnicos_perfiles t
JOIN vf_usuarios u ON u.id = t.usuario_id`

const technicianFrom = ` FROM vf_tecnicos_perfiles t JOIN vf_usuarios u ON u.id = t.usuario_id`

// experienceRank orders nivel_experiencia from junior up; TEXT columns
// would otherwise sort alphabetically.
const experienceRank = `CASE t.nivel_experiencia
	WHEN 'experto' THEN 4 WHEN 'senior' THEN 3 WHEN 'intermedio' THEN 2 ELSE 1 END`

type techniciansRepo struct {
	q querier
}

func scanTechnician(row rowScanner) (domain.Technician, error) {
	var (
		t                                  domain.Technician
		idNumber, address, city, country   sql.NullString
		level, availability, currency, bio sql.NullString
		phone                              sql.NullString
		birth                              domain.Date
		years                              sql.NullInt64
		rate                               sql.NullFloat64
	)
	err := row.Scan(
		&t.ID, &t.AccountID, &idNumber, &birth, &address,
		&city, &country, &years, &level, &availability, &rate,
		&currency, &bio, &t.CreatedAt, &t.UpdatedAt,
		&t.Email, &t.FirstName, &t.LastName, &phone, &t.AccountStatus,
	)
	if err != nil {
		return domain.Technician{}, err
	}
	t.IDNumber = idNumber.String
	t.BirthDate = datePtr(birth)
	t.Address = address.String
	t.City = city.String
	t.Country = country.String
	t.YearsExperience = int(years.Int64)
	t.ExperienceLevel = domain.ExperienceLevel(level.String)
	t.Availability = domain.Availability(availability.String)
	t.HourlyRate = floatPtr(rate)
	t.Currency = currency.String
	t.Bio = bio.String
	t.Phone = phone.String
	return t, nil
}

func (r *techniciansRepo) queryTechnicians(ctx context.Context, query string, args ...any) ([]domain.Technician, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Technician{}
	for rows.Next() {
		t, err := scanTechnician(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *techniciansRepo) CreateTechnician(ctx context.Context, t *domain.Technician) error {
	if t.ExperienceLevel == "" {
		t.ExperienceLevel = domain.ExperienceJunior
	}
	if t.Availability == "" {
		t.Availability = domain.AvailabilityAvailable
	}
	if t.Country == "" {
		t.Country = "España"
	}
	if t.Currency == "" {
		t.Currency = "EUR"
	}
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO vf_tecnicos_perfiles
			(usuario_id, numero_identificacion, fecha_nacimiento, direccion, ciudad, pais,
			 experiencia_anos, nivel_experiencia, disponibilidad, tarifa_por_hora, moneda, biografia)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.AccountID, nullString(t.IDNumber), nullDate(t.BirthDate), nullString(t.Address), nullString(t.City), t.Country,
		t.YearsExperience, string(t.ExperienceLevel), string(t.Availability), nullFloat(t.HourlyRate), t.Currency, nullString(t.Bio),
	)
	if err != nil {
		return mapWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	t.ID = id
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

func (r *techniciansRepo) GetTechnicianByID(ctx context.Context, id int64) (domain.Technician, error) {
	t, err := scanTechnician(r.q.QueryRowContext(ctx,
		technicianSelect+` WHERE t.id = ? AND u.estado <> 'eliminado'`, id))
	if err != nil {
		return domain.Technician{}, mapNotFound(err)
	}
	return t, nil
}

func (r *techniciansRepo) GetTechnicianByAccountID(ctx context.Context, accountID int64) (domain.Technician, error) {
	t, err := scanTechnician(r.q.QueryRowContext(ctx,
		technicianSelect+` WHERE t.usuario_id = ? AND u.estado <> 'eliminado'`, accountID))
	if err != nil {
		return domain.Technician{}, mapNotFound(err)
	}
	return t, nil
}

func (r *techniciansRepo) ListTechnicians(ctx context.Context, f store.TechnicianFilter) ([]domain.Technician, int64, error) {
	w := &where{}
	w.add("u.estado <> 'eliminado'")
	if f.Availability != "" {
		w.add("t.disponibilidad = ?", string(f.Availability))
	}
	if f.ExperienceLevel != "" {
		w.add("t.nivel_experiencia = ?", string(f.ExperienceLevel))
	}
	if f.City != "" {
		w.add("t.ciudad = ?", f.City)
	}
	if f.CompetencyID > 0 {
		w.add(`EXISTS (SELECT 1 FROM vf_tecnicos_competencias tc
			WHERE tc.tecnico_id = t.id AND tc.competencia_id = ?)`, f.CompetencyID)
	}
	w.like(f.Search, "u.nombre", "u.apellido", "u.email", "t.ciudad")

	total, err := count(ctx, r.q, `SELECT COUNT(*)`+technicianFrom+w.String(), w.args...)
	if err != nil {
		return nil, 0, err
	}

	out, err := r.queryTechnicians(ctx,
		technicianSelect+w.String()+` ORDER BY t.fecha_creacion DESC, t.id DESC LIMIT ? OFFSET ?`,
		pageArgs(w.args, f.Page)...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *techniciansRepo) ListAvailableTechnicians(ctx context.Context, competencyIDs []int64) ([]domain.Technician, error) {
	w := &where{}
	w.add("u.estado = 'activo'")
	w.add("t.disponibilidad = 'disponible'")
	competencyIDs = distinctIDs(competencyIDs)
	if len(competencyIDs) > 0 {
		args := make([]any, 0, len(competencyIDs)+1)
		for _, id := range competencyIDs {
			args = append(args, id)
		}
		args = append(args, len(competencyIDs))
		w.add(`t.id IN (SELECT tc.tecnico_id FROM vf_tecnicos_competencias tc
			WHERE tc.competencia_id IN (`+placeholders(len(competencyIDs))+`)
			GROUP BY tc.tecnico_id HAVING COUNT(DISTINCT tc.competencia_id) = ?)`, args...)
	}

	return r.queryTechnicians(ctx,
		technicianSelect+w.String()+` ORDER BY `+experienceRank+` DESC, u.nombre, u.apellido`,
		w.args...)
}

func (r *techniciansRepo) UpdateTechnician(ctx context.Context, t domain.Technician) error {
	return requireAffected(r.q.ExecContext(ctx, `
		UPDATE vf_tecnicos_perfiles
		SET fecha_actualizacion = CURRENT_TIMESTAMP,
			numero_identificacion = ?, fecha_nacimiento = ?, direccion = ?, ciudad = ?, pais = ?,
			experiencia_anos = ?, nivel_experiencia = ?, tarifa_por_hora = ?, moneda = ?, biografia = ?
		WHERE id = ?`,
		nullString(t.IDNumber), nullDate(t.BirthDate), nullString(t.Address), nullString(t.City), nullString(t.Country),
		t.YearsExperience, string(t.ExperienceLevel), nullFloat(t.HourlyRate), nullString(t.Currency), nullString(t.Bio),
		t.ID,
	))
}

func (r *techniciansRepo) SetAvailability(ctx context.Context, id int64, a domain.Availability) error {
	return requireAffected(r.q.ExecContext(ctx,
		`UPDATE vf_tecnicos_perfiles SET fecha_actualizacion = CURRENT_TIMESTAMP, disponibilidad = ? WHERE id = ?`, string(a), id))
}

func (r *techniciansRepo) TechnicianStats(ctx context.Context) (domain.Stats, error) {
	const from = technicianFrom + ` WHERE u.estado <> 'eliminado'`
	return stats(ctx, r.q, `SELECT COUNT(*)`+from, map[string]string{
		"disponibilidad":    `SELECT t.disponibilidad, COUNT(*)` + from + ` GROUP BY t.disponibilidad`,
		"nivel_experiencia": `SELECT t.nivel_experiencia, COUNT(*)` + from + ` GROUP BY t.nivel_experiencia`,
		"estado":            `SELECT u.estado, COUNT(*)` + from + ` GROUP BY u.estado`,
	})
}

func (r *techniciansRepo) ListTechnicianCompetencies(ctx context.Context, technicianID int64) ([]domain.TechnicianCompetency, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT tc.id, tc.tecnico_id, tc.competencia_id, tc.nivel_actual, tc.certificado,
			tc.fecha_certificacion, tc.fecha_vencimiento, tc.validado_por, tc.fecha_creacion,
			c.nombre, c.categoria
		FROM vf_tecnicos_competencias tc
		JOIN vf_competencias_catalogo c ON c.id = tc.competencia_id
		WHERE tc.tecnico_id = ?
		ORDER BY c.categoria, c.nombre`, technicianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.TechnicianCompetency{}
	for rows.Next() {
		var (
			tc                 domain.TechnicianCompetency
			certified, expires domain.Date
			validatedBy        sql.NullInt64
			category           sql.NullString
		)
		if err := rows.Scan(
			&tc.ID, &tc.TechnicianID, &tc.CompetencyID, &tc.CurrentLevel, &tc.Certified,
			&certified, &expires, &validatedBy, &tc.CreatedAt,
			&tc.Name, &category,
		); err != nil {
			return nil, err
		}
		tc.CertifiedOn = datePtr(certified)
		tc.ExpiresOn = datePtr(expires)
		tc.ValidatedBy = int64Ptr(validatedBy)
		tc.Category = category.String
		out = append(out, tc)
	}
	return out, rows.Err()
}

func (r *techniciansRepo) UpsertTechnicianCompetency(ctx context.Context, tc domain.TechnicianCompetency) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO vf_tecnicos_competencias
			(tecnico_id, competencia_id, nivel_actual, certificado, fecha_certificacion, fecha_vencimiento, validado_por)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tecnico_id, competencia_id) DO UPDATE SET
			nivel_actual = excluded.nivel_actual,
			certificado = excluded.certificado,
			fecha_certificacion = excluded.fecha_certificacion,
			fecha_vencimiento = excluded.fecha_vencimiento,
			validado_por = excluded.validado_por`,
		tc.TechnicianID, tc.CompetencyID, string(tc.CurrentLevel), tc.Certified,
		nullDate(tc.CertifiedOn), nullDate(tc.ExpiresOn), nullInt64(tc.ValidatedBy),
	)
	return mapWriteErr(err)
}

func (r *techniciansRepo) RemoveTechnicianCompetency(ctx context.Context, technicianID, competencyID int64) error {
	return requireAffected(r.q.ExecContext(ctx,
		`DELETE FROM vf_tecnicos_competencias WHERE tecnico_id = ? AND competencia_id = ?`,
		technicianID, competencyID))
}
