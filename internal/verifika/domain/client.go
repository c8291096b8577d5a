package domain

import "time"

// Client is a customer company joined with the account that manages it.
type Client struct {
	ID                      int64     `json:"id"`
	AccountID               int64     `json:"usuario_id"`
	CompanyName             string    `json:"nombre_empresa"`
	CIF                     string    `json:"cif,omitempty"`
	TaxAddress              string    `json:"direccion_fiscal,omitempty"`
	City                    string    `json:"ciudad,omitempty"`
	Country                 string    `json:"pais,omitempty"`
	CorporatePhone          string    `json:"telefono_corporativo,omitempty"`
	Website                 string    `json:"sitio_web,omitempty"`
	Sector                  string    `json:"sector_actividad,omitempty"`
	Employees               *int      `json:"numero_empleados,omitempty"`
	DoubleValidation        bool      `json:"requiere_validacion_doble"`
	ValidationDeadlineHours int       `json:"tiempo_limite_validacion"`
	CreatedAt               time.Time `json:"fecha_creacion"`
	UpdatedAt               time.Time `json:"fecha_actualizacion"`

	Email         string `json:"email"`
	FirstName     string `json:"nombre"`
	LastName      string `json:"apellido"`
	Phone         string `json:"telefono,omitempty"`
	AccountStatus Status `json:"estado"`
}

// OwnedBy reports whether accountID is the account behind this client.
func (c *Client) OwnedBy(accountID int64) bool {
	return c != nil && c.AccountID == accountID
}
