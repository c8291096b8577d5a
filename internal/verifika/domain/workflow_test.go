package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/stretchr/testify/require"
)

func TestAssignmentTransitions(t *testing.T) {
	allowed := map[domain.AssignmentStatus][]domain.AssignmentStatus{
		domain.AssignmentActive:    {domain.AssignmentPaused, domain.AssignmentFinished, domain.AssignmentCancelled},
		domain.AssignmentPaused:    {domain.AssignmentActive, domain.AssignmentFinished, domain.AssignmentCancelled},
		domain.AssignmentFinished:  nil,
		domain.AssignmentCancelled: nil,
	}
	all := []domain.AssignmentStatus{domain.AssignmentActive, domain.AssignmentPaused, domain.AssignmentFinished, domain.AssignmentCancelled}

	for from, tos := range allowed {
		for _, to := range all {
			want := false
			for _, ok := range tos {
				if ok == to {
					want = true
				}
			}
			require.Equal(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestActivityTechnicianTransitions(t *testing.T) {
	require.True(t, domain.ActivityDraft.CanTechnicianTransition(domain.ActivitySubmitted))
	require.True(t, domain.ActivityRejected.CanTechnicianTransition(domain.ActivityDraft))
	require.False(t, domain.ActivitySubmitted.CanTechnicianTransition(domain.ActivityValidated))
	require.False(t, domain.ActivityValidated.CanTechnicianTransition(domain.ActivityDraft))
	require.False(t, domain.ActivityDraft.CanTechnicianTransition(domain.ActivityValidated))

	require.True(t, domain.ActivityDraft.Editable())
	require.True(t, domain.ActivityRejected.Editable())
	require.False(t, domain.ActivitySubmitted.Editable())
}

func TestValidationOutcome(t *testing.T) {
	require.Equal(t, domain.ActivityValidated, domain.ValidationApproved.ActivityOutcome())
	require.Equal(t, domain.ActivityRejected, domain.ValidationRejected.ActivityOutcome())
	require.Equal(t, domain.ActivitySubmitted, domain.ValidationPendingReview.ActivityOutcome())
	require.Equal(t, domain.HistoryReviewRequested, domain.ValidationPendingReview.HistoryAction())
}

func TestParseClock(t *testing.T) {
	d, err := domain.ParseClock("09:30")
	require.NoError(t, err)
	require.Equal(t, 9*time.Hour+30*time.Minute, d)

	d, err = domain.ParseClock("17:00:15")
	require.NoError(t, err)
	require.Equal(t, 17*time.Hour+15*time.Second, d)

	_, err = domain.ParseClock("25:00")
	require.Error(t, err)
}

func TestPagination(t *testing.T) {
	p := domain.Page{Page: 2, Limit: 10}
	require.Equal(t, 10, p.Offset())

	meta := domain.NewPagination(p, 15)
	require.Equal(t, int64(2), meta.Pages)
	require.Equal(t, int64(15), meta.Total)

	require.Equal(t, int64(0), domain.NewPagination(domain.DefaultPage(), 0).Pages)
	require.Equal(t, int64(1), domain.NewPagination(domain.DefaultPage(), 10).Pages)
	require.Equal(t, int64(2), domain.NewPagination(domain.DefaultPage(), 11).Pages)
}

func TestDate(t *testing.T) {
	d, err := domain.ParseDate("2025-03-04")
	require.NoError(t, err)
	require.Equal(t, "2025-03-04", d.String())

	raw, err := json.Marshal(struct {
		D domain.Date  `json:"d"`
		P *domain.Date `json:"p,omitempty"`
		Z domain.Date  `json:"z"`
	}{D: d})
	require.NoError(t, err)
	require.JSONEq(t, `{"d":"2025-03-04","z":null}`, string(raw))

	var back struct {
		D domain.Date `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2025-03-04T10:00:00Z"}`), &back))
	require.Equal(t, d, back.D)

	var scanned domain.Date
	require.NoError(t, scanned.Scan([]byte("2025-03-04")))
	require.Equal(t, d, scanned)
	require.NoError(t, scanned.Scan(time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC)))
	require.Equal(t, d, scanned)

	v, err := d.Value()
	require.NoError(t, err)
	require.Equal(t, "2025-03-04", v)

	require.True(t, domain.NewDate(2025, 1, 1).Before(d))
	require.Error(t, json.Unmarshal([]byte(`{"d":"04/03/2025"}`), &back))
}
