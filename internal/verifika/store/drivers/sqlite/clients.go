package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/store"
)

const clientSelect = `SELECT c.id, c.usuario_id, c.nombre_empresa, c.cif, c.direccion_fiscal, c.ciudad, c.pais,
	c.telefono_corporativo, c.sitio_web, c.sector_actividad, c.numero_empleados,
	c.requiere_validacion_doble, c.tiempo_limite_validacion, c.fecha_creacion, c.fecha_actualizacion,
	u.email, u.nombre, u.apellido, u.telefono, u.estado
FROM vf_clientes c
JOIN vf_usuarios u ON u.id = c.usuario_id`

const clientFrom = ` FROM vf_clientes c JOIN vf_usuarios u ON u.id = c.usuario_id`

type clientsRepo struct {
	q querier
}

func scanClient(row rowScanner) (domain.Client, error) {
	var (
		c                                    domain.Client
		cif, taxAddress, city, country       sql.NullString
		corporatePhone, website, sector, tel sql.NullString
		employees                            sql.NullInt64
	)
	err := row.Scan(
		&c.ID, &c.AccountID, &c.CompanyName, &cif, &taxAddress, &city, &country,
		&corporatePhone, &website, &sector, &employees,
		&c.DoubleValidation, &c.ValidationDeadlineHours, &c.CreatedAt, &c.UpdatedAt,
		&c.Email, &c.FirstName, &c.LastName, &tel, &c.AccountStatus,
	)
	if err != nil {
		return domain.Client{}, err
	}
	c.CIF = cif.String
	c.TaxAddress = taxAddress.String
	c.City = city.String
	c.Country = country.String
	c.CorporatePhone = corporatePhone.String
	c.Website = website.String
	c.Sector = sector.String
	c.Employees = intPtr(employees)
	c.Phone = tel.String
	return c, nil
}

func (r *clientsRepo) CreateClient(ctx context.Context, c *domain.Client) error {
	if c.Country == "" {
		c.Country = "España"
	}
	if c.ValidationDeadlineHours <= 0 {
		c.ValidationDeadlineHours = 72
	}
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO vf_clientes
			(usuario_id, nombre_empresa, cif, direccion_fiscal, ciudad, pais, telefono_corporativo,
			 sitio_web, sector_actividad, numero_empleados, requiere_validacion_doble, tiempo_limite_validacion)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.AccountID, c.CompanyName, nullString(c.CIF), nullString(c.TaxAddress), nullString(c.City), c.Country,
		nullString(c.CorporatePhone), nullString(c.Website), nullString(c.Sector), nullInt(c.Employees),
		c.DoubleValidation, c.ValidationDeadlineHours,
	)
	if err != nil {
		return mapWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (r *clientsRepo) GetClientByID(ctx context.Context, id int64) (domain.Client, error) {
	c, err := scanClient(r.q.QueryRowContext(ctx,
		clientSelect+` WHERE c.id = ? AND u.estado <> 'eliminado'`, id))
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}
	return c, nil
}

func (r *clientsRepo) GetClientByAccountID(ctx context.Context, accountID int64) (domain.Client, error) {
	c, err := scanClient(r.q.QueryRowContext(ctx,
		clientSelect+` WHERE c.usuario_id = ? AND u.estado <> 'eliminado'`, accountID))
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}
	return c, nil
}

func (r *clientsRepo) ListClients(ctx context.Context, f store.ClientFilter) ([]domain.Client, int64, error) {
	w := &where{}
	w.add("u.estado <> 'eliminado'")
	if f.Sector != "" {
		w.add("c.sector_actividad = ?", f.Sector)
	}
	if f.City != "" {
		w.add("c.ciudad = ?", f.City)
	}
	if f.Status != "" {
		w.add("u.estado = ?", string(f.Status))
	}
	w.like(f.Search, "c.nombre_empresa", "c.cif", "u.email", "u.nombre", "u.apellido")

	total, err := count(ctx, r.q, `SELECT COUNT(*)`+clientFrom+w.String(), w.args...)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.q.QueryContext(ctx,
		clientSelect+w.String()+` ORDER BY c.nombre_empresa, c.id LIMIT ? OFFSET ?`,
		pageArgs(w.args, f.Page)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []domain.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *clientsRepo) UpdateClient(ctx context.Context, c domain.Client) error {
	return requireAffected(r.q.ExecContext(ctx, `
		UPDATE vf_clientes
		SET fecha_actualizacion = CURRENT_TIMESTAMP,
			nombre_empresa = ?, cif = ?, direccion_fiscal = ?, ciudad = ?, pais = ?, telefono_corporativo = ?,
			sitio_web = ?, sector_actividad = ?, numero_empleados = ?, requiere_validacion_doble = ?,
			tiempo_limite_validacion = ?
		WHERE id = ?`,
		c.CompanyName, nullString(c.CIF), nullString(c.TaxAddress), nullString(c.City), nullString(c.Country),
		nullString(c.CorporatePhone), nullString(c.Website), nullString(c.Sector), nullInt(c.Employees),
		c.DoubleValidation, c.ValidationDeadlineHours, c.ID,
	))
}

func (r *clientsRepo) ClientStats(ctx context.Context) (domain.Stats, error) {
	const from = clientFrom + ` WHERE u.estado <> 'eliminado'`
	return stats(ctx, r.q, `SELECT COUNT(*)`+from, map[string]string{
		"sector_actividad": `SELECT c.sector_actividad, COUNT(*)` + from + ` GROUP BY c.sector_actividad`,
		"ciudad":           `SELECT c.ciudad, COUNT(*)` + from + ` GROUP BY c.ciudad`,
		"estado":           `SELECT u.estado, COUNT(*)` + from + ` GROUP BY u.estado`,
	})
}
