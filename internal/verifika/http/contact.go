package http

import (
	"net/http"

	"github.com/bluesystem/verifika/internal/verifika/service"
	"github.com/bluesystem/verifika/pkg/httpx"
)

type ContactHandler struct {
	Contact *service.ContactService
	errs    errorWriter
}

// Submit godoc
//
//	@Summary		Send the contact form
//	@Tags			Contact
//	@Accept			json
//	@Produce		json
//	@Param			request	body	service.ContactInput	true	"Request body"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		429	{object}	httpx.Envelope	"Rate limited"
//	@Router			/api/contact [post].
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var in service.ContactInput
	if !decodeJSON(w, r, &in) {
		return
	}
	req, err := h.Contact.Submit(r.Context(), in, service.ContactOrigin{
		IP:        httpx.IPKeyExtractor(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.errs.write(w, r, err, "Consulta")
		return
	}
	httpx.WriteData(w, http.StatusOK, map[string]any{"timestamp": req.SubmittedAt},
		"Tu consulta ha sido enviada exitosamente. Te contactaremos pronto.")
}

// Services godoc
//
//	@Summary		List the services offered on the contact form
//	@Tags			Contact
//	@Produce		json
//	@Success		200	{object}	httpx.Envelope
//	@Router			/api/contact/services [get].
func (h *ContactHandler) Services(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteData(w, http.StatusOK, map[string]any{"services": h.Contact.Services()}, "")
}
