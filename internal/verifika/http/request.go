package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/service"
	"github.com/bluesystem/verifika/pkg/httpx"
)

const maxBody = 1 << 20

var errMalformedBody = httpx.NewError(http.StatusBadRequest, httpx.CodeValidation, "El cuerpo de la petición debe ser JSON válido")

// decodeJSON reads one JSON value from the request body into dst. An empty
// body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		errMalformedBody.WithDetails(err.Error()).Write(w)
		return false
	}
	return true
}

// pathID parses the named path segment as a positive id.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 1 {
		httpx.NewError(http.StatusBadRequest, httpx.CodeValidation, "Identificador inválido").
			WithDetails(map[string]string{name: "must be a positive integer"}).
			Write(w)
		return 0, false
	}
	return id, true
}

// pageFrom reads page and limit, clamping them into range instead of
// rejecting the request.
func pageFrom(r *http.Request) domain.Page {
	p := domain.DefaultPage()
	q := r.URL.Query()
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 1 {
		p.Page = n
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n >= 1 {
		p.Limit = min(n, domain.MaxPageLimit)
	}
	return p
}

// query collects query parameter errors so a handler can report them all at
// once.
type query struct {
	r    *http.Request
	errs map[string]string
}

func newQuery(r *http.Request) *query {
	return &query{r: r}
}

func (q *query) fail(name, msg string) {
	if q.errs == nil {
		q.errs = map[string]string{}
	}
	q.errs[name] = msg
}

func (q *query) str(name string) string {
	return strings.TrimSpace(q.r.URL.Query().Get(name))
}

func (q *query) id(name string) int64 {
	raw := q.str(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 1 {
		q.fail(name, "must be a positive integer")
		return 0
	}
	return n
}

// ids parses a comma separated id list. Repeats are dropped.
func (q *query) ids(name string) []int64 {
	var out []int64
	seen := map[int64]bool{}
	for _, part := range httpx.SplitCSV(q.str(name)) {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n < 1 {
			q.fail(name, "must be a comma separated list of ids")
			return nil
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func (q *query) boolean(name string) *bool {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		q.fail(name, "must be true or false")
		return nil
	}
	return &b
}

func (q *query) date(name string) *domain.Date {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		q.fail(name, "must be a date in YYYY-MM-DD format")
		return nil
	}
	return &d
}

// ok writes a validation error when any parameter failed to parse.
func (q *query) ok(w http.ResponseWriter) bool {
	if len(q.errs) == 0 {
		return true
	}
	httpx.NewError(http.StatusBadRequest, httpx.CodeValidation, "Parámetros de consulta inválidos").
		WithDetails(q.errs).
		Write(w)
	return false
}

// actorFrom returns the authenticated caller. Routes that call it always sit
// behind AuthnMiddleware.
func actorFrom(r *http.Request) service.Actor {
	p, _ := httpx.PrincipalFrom(r.Context())
	return service.Actor{AccountID: p.ID, Role: domain.Role(p.Role)}
}

// writeList answers a paginated endpoint with data {<key>: items, pagination}.
func writeList[T any](w http.ResponseWriter, key string, items []T, p domain.Pagination) {
	if items == nil {
		items = []T{}
	}
	httpx.WriteData(w, http.StatusOK, map[string]any{key: items, "pagination": p}, "")
}
