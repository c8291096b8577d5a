package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestContactSubmit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	at := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	svc := &ContactService{Now: func() time.Time { return at }}
	from := ContactOrigin{IP: "203.0.113.7", UserAgent: "test"}

	valid := ContactInput{
		Name:    "  Ana Mora ",
		Email:   "Ana@Empresa.CR",
		Message: "Necesitamos apoyo con la migración a S/4HANA.",
	}

	t.Run("unset choices get their defaults", func(t *testing.T) {
		req, err := svc.Submit(ctx, valid, from)
		require.NoError(t, err)
		require.Equal(t, "Ana Mora", req.Name)
		require.Equal(t, "ana@empresa.cr", req.Email)
		require.Equal(t, "no-especificado", req.Service)
		require.Equal(t, "no-especificado", req.Country)
		require.Equal(t, "no-especificado", req.Employees)
		require.Equal(t, "no-definido", req.Timeline)
		require.Equal(t, at, req.SubmittedAt)
		require.Equal(t, "203.0.113.7", req.IP)
	})

	t.Run("choices outside the lists are rejected", func(t *testing.T) {
		in := valid
		in.Service = "blockchain"
		in.Country = "chile"
		_, err := svc.Submit(ctx, in, from)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "service")
		require.Contains(t, verr.Fields, "country")
	})

	t.Run("short message and bad phone", func(t *testing.T) {
		in := valid
		in.Message = "hola"
		in.Phone = "abc"
		_, err := svc.Submit(ctx, in, from)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "message")
		require.Contains(t, verr.Fields, "phone")
	})

	t.Run("a filled honeypot is spam even when the rest is valid", func(t *testing.T) {
		in := valid
		in.Website = "http://spam.example"
		_, err := svc.Submit(ctx, in, from)
		require.ErrorIs(t, err, ErrSpam)
	})

	t.Run("full submission", func(t *testing.T) {
		in := valid
		in.Phone = "+506 7219-2010"
		in.Service = "sap"
		in.Country = "costa-rica"
		in.Employees = "51-200"
		in.Timeline = "1-3-meses"
		in.Newsletter = true
		req, err := svc.Submit(ctx, in, from)
		require.NoError(t, err)
		require.Equal(t, "sap", req.Service)
		require.True(t, req.Newsletter)
	})

	require.Len(t, svc.Services(), 6)
}

func TestMostDemandedLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	for limit, want := range map[int]int{0: DefaultDemandLimit, -4: DefaultDemandLimit, 3: 3, 500: 10} {
		got, err := e.competencies.MostDemanded(ctx, limit)
		require.NoError(t, err)
		require.Len(t, got, want, "limit %d", limit)
	}

	_, err := e.competencies.Holders(ctx, 424242)
	require.ErrorIs(t, err, ErrNotFound)
	holders, err := e.competencies.Holders(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, holders)
}
