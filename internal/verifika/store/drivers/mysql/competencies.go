package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/store"
)

const competencySelect = `SELECT c.id, c.nombre, c.descripcion, c.categoria, c.nivel_requerido,
	c.certificacion_requerida, c.activo, c.fecha_creacion,
	(SELECT COUNT(*) FROM vf_tecnicos_competencias tc WHERE tc.competencia_id = c.id) AS total_tecnicos
FROM vf_competencias_catalogo c`

type competenciesRepo struct {
	q querier
}

func scanCompetency(row rowScanner) (domain.Competency, error) {
	var (
		c                     domain.Competency
		description, category sql.NullString
	)
	err := row.Scan(
		&c.ID, &c.Name, &description, &category, &c.RequiredLevel,
		&c.CertificationRequired, &c.Active, &c.CreatedAt, &c.TechnicianCount,
	)
	if err != nil {
		return domain.Competency{}, err
	}
	c.Description = description.String
	c.Category = category.String
	return c, nil
}

func (r *competenciesRepo) CreateCompetency(ctx context.Context, c *domain.Competency) error {
	if c.RequiredLevel == "" {
		c.RequiredLevel = domain.SkillBasic
	}
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO vf_competencias_catalogo
			(nombre, descripcion, categoria, nivel_requerido, certificacion_requerida, activo)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.Name, nullString(c.Description), nullString(c.Category), string(c.RequiredLevel),
		c.CertificationRequired, c.Active,
	)
	if err != nil {
		return mapWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	c.CreatedAt = time.Now().UTC()
	return nil
}

func (r *competenciesRepo) GetCompetencyByID(ctx context.Context, id int64) (domain.Competency, error) {
	c, err := scanCompetency(r.q.QueryRowContext(ctx, competencySelect+` WHERE c.id = ?`, id))
	if err != nil {
		return domain.Competency{}, mapNotFound(err)
	}
	return c, nil
}

func (r *competenciesRepo) ListCompetencies(ctx context.Context, f store.CompetencyFilter) ([]domain.Competency, int64, error) {
	w := &where{}
	if f.Category != "" {
		w.add("c.categoria = ?", f.Category)
	}
	if f.RequiredLevel != "" {
		w.add("c.nivel_requerido = ?", string(f.RequiredLevel))
	}
	if f.Active != nil {
		w.add("c.activo = ?", *f.Active)
	}
	w.like(f.Search, "c.nombre", "c.descripcion", "c.categoria")

	total, err := count(ctx, r.q, `SELECT COUNT(*) FROM vf_competencias_catalogo c`+w.String(), w.args...)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.q.QueryContext(ctx,
		competencySelect+w.String()+` ORDER BY c.categoria, c.nombre LIMIT ? OFFSET ?`,
		pageArgs(w.args, f.Page)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []domain.Competency{}
	for rows.Next() {
		c, err := scanCompetency(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *competenciesRepo) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT DISTINCT categoria FROM vf_competencias_catalogo
		WHERE categoria IS NOT NULL AND activo = TRUE
		ORDER BY categoria`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var cat string
		if err := rows.Scan(&cat); err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, rows.Err()
}

func (r *competenciesRepo) UpdateCompetency(ctx context.Context, c domain.Competency) error {
	return requireAffected(r.q.ExecContext(ctx, `
		UPDATE vf_competencias_catalogo
		SET nombre = ?, descripcion = ?, categoria = ?, nivel_requerido = ?, certificacion_requerida = ?
		WHERE id = ?`,
		c.Name, nullString(c.Description), nullString(c.Category), string(c.RequiredLevel),
		c.CertificationRequired, c.ID,
	))
}

func (r *competenciesRepo) SetCompetencyActive(ctx context.Context, id int64, active bool) error {
	return requireAffected(r.q.ExecContext(ctx,
		`UPDATE vf_competencias_catalogo SET activo = ? WHERE id = ?`, active, id))
}

func (r *competenciesRepo) DeleteCompetency(ctx context.Context, id int64) error {
	return requireAffected(r.q.ExecContext(ctx,
		`DELETE FROM vf_competencias_catalogo WHERE id = ?`, id))
}

func (r *competenciesRepo) ListCompetencyHolders(ctx context.Context, id int64) ([]domain.CompetencyHolder, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT t.id, u.nombre, u.apellido, u.email, tc.nivel_actual, tc.certificado
		FROM vf_tecnicos_competencias tc
		JOIN vf_tecnicos_perfiles t ON t.id = tc.tecnico_id
		JOIN vf_usuarios u ON u.id = t.usuario_id
		WHERE tc.competencia_id = ? AND u.estado <> 'eliminado'
		ORDER BY u.nombre, u.apellido`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.CompetencyHolder{}
	for rows.Next() {
		var h domain.CompetencyHolder
		if err := rows.Scan(&h.TechnicianID, &h.FirstName, &h.LastName, &h.Email, &h.Level, &h.Certified); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *competenciesRepo) MostDemandedCompetencies(ctx context.Context, limit int) ([]domain.Competency, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT c.id, c.nombre, c.descripcion, c.categoria, c.nivel_requerido,
			c.certificacion_requerida, c.activo, c.fecha_creacion,
			COUNT(tc.id) AS total_tecnicos,
			COUNT(CASE WHEN tc.certificado = TRUE THEN 1 END) AS tecnicos_certificados
		FROM vf_competencias_catalogo c
		LEFT JOIN vf_tecnicos_competencias tc ON tc.competencia_id = c.id
		WHERE c.activo = TRUE
		GROUP BY c.id
		ORDER BY total_tecnicos DESC, tecnicos_certificados DESC, c.nombre
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Competency{}
	for rows.Next() {
		var (
			c                     domain.Competency
			description, category sql.NullString
			certified             int64
		)
		if err := rows.Scan(
			&c.ID, &c.Name, &description, &category, &c.RequiredLevel,
			&c.CertificationRequired, &c.Active, &c.CreatedAt, &c.TechnicianCount, &certified,
		); err != nil {
			return nil, err
		}
		c.Description = description.String
		c.Category = category.String
		c.CertifiedCount = &certified
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *competenciesRepo) CompetencyStats(ctx context.Context) (domain.Stats, error) {
	return stats(ctx, r.q, `SELECT COUNT(*) FROM vf_competencias_catalogo`, map[string]string{
		"categoria":       `SELECT categoria, COUNT(*) FROM vf_competencias_catalogo GROUP BY categoria`,
		"nivel_requerido": `SELECT nivel_requerido, COUNT(*) FROM vf_competencias_catalogo GROUP BY nivel_requerido`,
		"activo": `SELECT IF(activo, 'activa', 'inactiva'), COUNT(*) FROM vf_competencias_catalogo
			GROUP BY IF(activo, 'activa', 'inactiva')`,
	})
}
