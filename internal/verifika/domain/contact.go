package domain

import "time"

// ContactOption is one selectable value of the public contact form.
type ContactOption struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// ContactServices lists the services a prospect can ask about, in display
// order.
var ContactServices = []ContactOption{
	{Value: "sap", Label: "Consultoría SAP", Description: "Implementación y optimización SAP S/4HANA"},
	{Value: "ia", Label: "Automatización con IA", Description: "Soluciones inteligentes y automatización de procesos"},
	{Value: "office365", Label: "Integraciones Office 365", Description: "Conectividad y colaboración en ecosistema Microsoft"},
	{Value: "desarrollo-web", Label: "Desarrollo Web Empresarial", Description: "Aplicaciones web modernas y escalables"},
	{Value: "consultoria", Label: "Consultoría Estratégica", Description: "Transformación digital integral"},
	{Value: "otro", Label: "Otro", Description: "Proyecto específico o necesidad personalizada"},
}

var (
	ContactCompanySizes = []string{"1-10", "11-50", "51-200", "201-1000", "1000+"}
	ContactCountries    = []string{
		"costa-rica", "guatemala", "el-salvador", "honduras", "nicaragua", "panama", "mexico", "otros",
	}
	ContactTimelines = []string{"inmediato", "1-3-meses", "3-6-meses", "6-12-meses", "no-definido"}
)

// ContactRequest is a cleaned contact form submission. Unset choices read
// "no-especificado", or "no-definido" for the timeline.
type ContactRequest struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Company     string    `json:"company"`
	Employees   string    `json:"employees"`
	Country     string    `json:"country"`
	Service     string    `json:"service"`
	Message     string    `json:"message"`
	Timeline    string    `json:"timeline"`
	Newsletter  bool      `json:"newsletter"`
	SubmittedAt time.Time `json:"timestamp"`
	IP          string    `json:"-"`
	UserAgent   string    `json:"-"`
}
