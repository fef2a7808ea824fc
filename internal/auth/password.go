// Package auth provides password digests, session tokens and the request
// authorization gate.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Supported digest algorithms.
const (
	AlgorithmArgon2id = "argon2id"
	AlgorithmBcrypt   = "bcrypt"
)

// DefaultBcryptCost matches the work factor used by the previous deployment.
const DefaultBcryptCost = 12

// Argon2Params holds the Argon2id tuning parameters.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

// DefaultArgon2Params are the OWASP 2024 recommended minimum.
var DefaultArgon2Params = Argon2Params{
	Time:    3,
	Memory:  64 * 1024, // 64 MB
	Threads: 4,
	KeyLen:  32,
	SaltLen: 16,
}

var (
	// ErrInvalidHash indicates the hash format is invalid.
	ErrInvalidHash = errors.New("invalid hash format")
	// ErrIncompatibleVersion indicates the hash version is not supported.
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
	// ErrUnknownAlgorithm indicates an unsupported digest algorithm was requested.
	ErrUnknownAlgorithm = errors.New("unknown password hash algorithm")
)

// PasswordHasher produces salted password digests with a fixed algorithm.
// Verification accepts digests of every supported algorithm.
type PasswordHasher struct {
	algorithm  string
	argon2     Argon2Params
	bcryptCost int
}

// HasherOption customizes a PasswordHasher.
type HasherOption func(*PasswordHasher)

// WithArgon2Params overrides the Argon2id parameters.
func WithArgon2Params(p Argon2Params) HasherOption {
	return func(h *PasswordHasher) { h.argon2 = p }
}

// WithBcryptCost overrides the bcrypt work factor.
func WithBcryptCost(cost int) HasherOption {
	return func(h *PasswordHasher) { h.bcryptCost = cost }
}

// NewPasswordHasher returns a hasher for the named algorithm.
func NewPasswordHasher(algorithm string, opts ...HasherOption) (*PasswordHasher, error) {
	if algorithm == "" {
		algorithm = AlgorithmArgon2id
	}
	if algorithm != AlgorithmArgon2id && algorithm != AlgorithmBcrypt {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}

	h := &PasswordHasher{
		algorithm:  algorithm,
		argon2:     DefaultArgon2Params,
		bcryptCost: DefaultBcryptCost,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Algorithm returns the algorithm used for new digests.
func (h *PasswordHasher) Algorithm() string {
	return h.algorithm
}

// Hash creates a salted digest of the password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if h.algorithm == AlgorithmBcrypt {
		digest, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
		if err != nil {
			return "", fmt.Errorf("bcrypt hash: %w", err)
		}
		return string(digest), nil
	}
	return hashArgon2id(password, h.argon2)
}

// Verify checks the password against a digest of any supported algorithm.
func (h *PasswordHasher) Verify(password, digest string) (bool, error) {
	return VerifyPassword(password, digest)
}

func hashArgon2id(password string, p Argon2Params) (string, error) {
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	// Encode in PHC string format:
	// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Time,
		p.Threads,
		b64Salt,
		b64Hash,
	), nil
}

// VerifyPassword checks if the password matches the digest. Argon2id (PHC)
// and bcrypt ($2a$, $2b$, $2y$) digests are accepted.
func VerifyPassword(password, encodedHash string) (bool, error) {
	if isBcryptDigest(encodedHash) {
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, ErrInvalidHash
		}
	}
	return verifyArgon2id(password, encodedHash)
}

func isBcryptDigest(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") ||
		strings.HasPrefix(digest, "$2b$") ||
		strings.HasPrefix(digest, "$2y$")
}

func verifyArgon2id(password, encodedHash string) (bool, error) {
	// Parse the PHC string format
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false, ErrInvalidHash
	}

	if parts[1] != "argon2id" {
		return false, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, ErrInvalidHash
	}
	if version != argon2.Version {
		return false, ErrIncompatibleVersion
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, ErrInvalidHash
	}
	if memory == 0 || time == 0 || threads == 0 {
		return false, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrInvalidHash
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expectedHash) == 0 {
		return false, ErrInvalidHash
	}

	computedHash := argon2.IDKey(
		[]byte(password),
		salt,
		time,
		memory,
		threads,
		uint32(len(expectedHash)),
	)

	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1, nil
}
