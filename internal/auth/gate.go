package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/snipvault/snipvault/internal/metrics"
	"github.com/snipvault/snipvault/internal/model"
)

// UserLookup resolves a user by ID. Implementations return (nil, nil) when
// the user does not exist.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// Gate turns a presented session token into the acting user.
type Gate struct {
	codec   *TokenCodec
	users   UserLookup
	logger  *slog.Logger
	metrics metrics.Recorder
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithRecorder counts rejected tokens by reason.
func WithRecorder(recorder metrics.Recorder) GateOption {
	return func(g *Gate) {
		if recorder != nil {
			g.metrics = recorder
		}
	}
}

// NewGate creates a Gate.
func NewGate(codec *TokenCodec, users UserLookup, logger *slog.Logger, opts ...GateOption) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{codec: codec, users: users, logger: logger, metrics: metrics.NewNoop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authenticate returns the user the token belongs to.
//
// A missing, invalid or expired token and a token for a deleted user all
// yield (nil, nil); callers decide whether anonymous access is allowed.
// Only a failing lookup is reported as an error.
func (g *Gate) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}

	userID, err := g.codec.Decode(token)
	if err != nil {
		g.reject(ctx, rejectReason(err))
		return nil, nil
	}

	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup session user: %w", err)
	}
	if user == nil {
		g.reject(ctx, "unknown_user")
		return nil, nil
	}
	return user.Public(), nil
}

func (g *Gate) reject(ctx context.Context, reason string) {
	g.metrics.IncAuthRejected(reason)
	g.logger.DebugContext(ctx, "session token rejected",
		slog.String("reason", reason),
		slog.String("request_id", requestIDFromContext(ctx)),
	)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenBadSignature):
		return "bad_signature"
	default:
		return "malformed"
	}
}
