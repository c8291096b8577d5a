package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/bluesystem/verifika/pkg/cryptox"
	"github.com/bluesystem/verifika/pkg/slogx"
)

// Sessions is the best-effort session index. Implementations never fail a
// request: reads report absence and writes report false when unavailable.
type Sessions interface {
	SetSession(ctx context.Context, accountID int64, token string, ttl time.Duration) bool
	SessionActive(ctx context.Context, accountID int64, token string) bool
	DeleteSession(ctx context.Context, accountID int64) bool

	SetInvitation(ctx context.Context, email, token string) bool
	ConsumeInvitation(ctx context.Context, email, token string) bool
	DeleteInvitation(ctx context.Context, email string) bool

	SetResetToken(ctx context.Context, email, token string) bool
	ConsumeResetToken(ctx context.Context, email, token string) bool
}

// issueInvitation caches a fresh invitation for email and returns it. An
// empty string means the cache refused the write.
func issueInvitation(ctx context.Context, sessions Sessions, email string) (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}
	if !sessions.SetInvitation(ctx, email, token) {
		slogx.FromContext(ctx).Warn("invitation not cached", slog.String("email", email))
		return "", nil
	}
	return token, nil
}
