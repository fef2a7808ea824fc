package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/snipvault/snipvault/internal/auth"
	"github.com/snipvault/snipvault/internal/cache"
	"github.com/snipvault/snipvault/internal/metrics"
	"github.com/snipvault/snipvault/internal/model"
	"github.com/snipvault/snipvault/internal/repository"
)

const (
	minPasswordBytes = 8
	// maxPasswordBytes is bcrypt's input limit; applied to every algorithm so
	// switching PASSWORD_HASH never locks anyone out.
	maxPasswordBytes = 72
	maxEmailLength   = 255
	maxNameLength    = 100
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// UserRepository is the persistence the credential store needs.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// UserCache is an optional read-through cache for GetByID.
type UserCache interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	SetUser(ctx context.Context, user *model.User, ttl time.Duration) error
	SetUserNotFound(ctx context.Context, id string, ttl time.Duration) error
}

// CredentialStoreConfig holds optional collaborators of a CredentialStore.
type CredentialStoreConfig struct {
	Cache    UserCache
	CacheTTL time.Duration
	Recorder metrics.Recorder
	Logger   *slog.Logger
	Now      func() time.Time
}

// CredentialStore owns user identities and password verification.
type CredentialStore struct {
	repo        UserRepository
	hasher      *auth.PasswordHasher
	cache       UserCache
	cacheTTL    time.Duration
	metrics     metrics.Recorder
	logger      *slog.Logger
	now         func() time.Time
	dummyDigest string
}

// NewCredentialStore creates a CredentialStore. It hashes a throwaway
// password once so lookups of unknown emails cost the same as real ones.
func NewCredentialStore(repo UserRepository, hasher *auth.PasswordHasher, cfg CredentialStoreConfig) (*CredentialStore, error) {
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.NewNoop()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultUserTTL
	}

	dummy, err := hasher.Hash(ulid.Make().String())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy digest: %w", err)
	}

	return &CredentialStore{
		repo:        repo,
		hasher:      hasher,
		cache:       cfg.Cache,
		cacheTTL:    cfg.CacheTTL,
		metrics:     cfg.Recorder,
		logger:      cfg.Logger,
		now:         cfg.Now,
		dummyDigest: dummy,
	}, nil
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user. Exactly one insert is issued; a concurrent
// registration of the same email fails with ErrDuplicateEmail.
func (s *CredentialStore) Register(ctx context.Context, email, rawPassword, name string) (*model.User, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)

	if err := validateRegistration(email, rawPassword, name); err != nil {
		return nil, err
	}

	digest, err := s.hash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:             ulid.Make().String(),
		Email:          email,
		Name:           name,
		PasswordDigest: digest,
		CreatedAt:      s.now().UTC(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.IncRegistration()
	return user.Public(), nil
}

// VerifyCredentials returns the user for a matching email and password.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials after
// a full digest comparison.
func (s *CredentialStore) VerifyCredentials(ctx context.Context, email, rawPassword string) (*model.User, error) {
	email = NormalizeEmail(email)

	if email == "" || len(rawPassword) > maxPasswordBytes {
		s.burnDummy()
		return nil, s.loginFailed()
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.burnDummy()
			return nil, s.loginFailed()
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	match, err := s.verify(rawPassword, user.PasswordDigest)
	if err != nil {
		s.logger.ErrorContext(ctx, "stored password digest is unreadable",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		return nil, s.loginFailed()
	}

	s.metrics.IncLogin(metrics.LoginSuccess)
	return user.Public(), nil
}

// GetByID returns the user with id, or (nil, nil) when none exists.
func (s *CredentialStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	if s.cache != nil {
		user, err := s.cache.GetUser(ctx, id)
		switch {
		case err == nil:
			s.metrics.IncUserCacheHit()
			return user, nil
		case errors.Is(err, cache.ErrCacheMiss):
			s.metrics.IncUserCacheMiss()
		default:
			s.logger.WarnContext(ctx, "user cache read failed", slog.String("error", err.Error()))
		}
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.remember(ctx, id, nil)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	user = user.Public()
	s.remember(ctx, id, user)
	return user, nil
}

func (s *CredentialStore) remember(ctx context.Context, id string, user *model.User) {
	if s.cache == nil {
		return
	}

	var err error
	if user == nil {
		err = s.cache.SetUserNotFound(ctx, id, s.cacheTTL)
	} else {
		err = s.cache.SetUser(ctx, user, s.cacheTTL)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "user cache write failed", slog.String("error", err.Error()))
	}
}

func (s *CredentialStore) hash(password string) (string, error) {
	start := time.Now()
	defer func() { s.metrics.ObservePasswordHashDuration(time.Since(start)) }()
	return s.hasher.Hash(password)
}

func (s *CredentialStore) verify(password, digest string) (bool, error) {
	start := time.Now()
	defer func() { s.metrics.ObservePasswordHashDuration(time.Since(start)) }()
	return s.hasher.Verify(password, digest)
}

func (s *CredentialStore) burnDummy() {
	_, _ = s.verify("invalid-password", s.dummyDigest)
}

func (s *CredentialStore) loginFailed() error {
	s.metrics.IncLogin(metrics.LoginFailed)
	return ErrInvalidCredentials
}

func validateRegistration(email, password, name string) error {
	if email == "" {
		return invalid("email", "is required")
	}
	if len(email) > maxEmailLength || !emailRegex.MatchString(email) {
		return invalid("email", "is not a valid email address")
	}
	if len(password) < minPasswordBytes {
		return invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordBytes))
	}
	if len(password) > maxPasswordBytes {
		return invalid("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	if name == "" {
		return invalid("name", "is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return invalid("name", fmt.Sprintf("must be at most %d characters", maxNameLength))
	}
	return nil
}
