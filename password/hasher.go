package password

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedHash is returned when a stored hash cannot be parsed.
var ErrMalformedHash = errors.New("password: malformed hash")

// ErrPasswordTooLong is returned by Hash when the plaintext exceeds what the
// algorithm can hash without truncation (72 bytes for bcrypt).
var ErrPasswordTooLong = errors.New("password: too long for algorithm")

// Algorithm selects the scheme used for newly created hashes.
type Algorithm string

const (
	// AlgorithmArgon2id produces PHC-encoded argon2id hashes.
	AlgorithmArgon2id Algorithm = "argon2id"
	// AlgorithmBcrypt produces bcrypt hashes compatible with the legacy user table.
	AlgorithmBcrypt Algorithm = "bcrypt"
)

// Config defines the hashing policy.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Algorithm  Algorithm
	Argon2     Argon2Params
	BcryptCost int
}

// DefaultConfig returns argon2id with interactive-login parameters.
func DefaultConfig() Config {
	return Config{
		Algorithm: AlgorithmArgon2id,
		Argon2: Argon2Params{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		BcryptCost: DefaultBcryptCost,
	}
}

type scheme interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encoded string) (bool, error)
	NeedsUpgrade(encoded string) (bool, error)
}

// Hasher creates hashes with the configured algorithm and verifies hashes of
// any supported algorithm, dispatching on the stored prefix.
//
// Hasher is safe for concurrent use.
type Hasher struct {
	preferred Algorithm
	argon2    *Argon2
	bcrypt    *Bcrypt
}

// New describes the new operation and its observable behavior.
//
// New may return an error when the configured parameters are out of range.
func New(cfg Config) (*Hasher, error) {
	a, err := NewArgon2(cfg.Argon2)
	if err != nil {
		return nil, err
	}
	b, err := NewBcrypt(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	switch cfg.Algorithm {
	case AlgorithmArgon2id, AlgorithmBcrypt:
	default:
		return nil, fmt.Errorf("unsupported password algorithm %q", cfg.Algorithm)
	}

	return &Hasher{preferred: cfg.Algorithm, argon2: a, bcrypt: b}, nil
}

// Hash produces a salted hash of plaintext with the preferred algorithm.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if h.preferred == AlgorithmBcrypt {
		return h.bcrypt.Hash(plaintext)
	}
	return h.argon2.Hash(plaintext)
}

// Verify compares plaintext against encoded in constant time.
//
// A mismatch returns (false, nil). An unknown or malformed encoding returns
// (false, err) wrapping ErrMalformedHash; callers must treat it as a mismatch.
func (h *Hasher) Verify(plaintext, encoded string) (bool, error) {
	s, err := h.schemeFor(encoded)
	if err != nil {
		return false, err
	}
	return s.Verify(plaintext, encoded)
}

// NeedsUpgrade reports whether encoded should be re-hashed on the next
// successful login, either because it uses a different algorithm or weaker
// parameters than the current configuration.
func (h *Hasher) NeedsUpgrade(encoded string) (bool, error) {
	s, err := h.schemeFor(encoded)
	if err != nil {
		return false, err
	}
	if h.algorithmOf(s) != h.preferred {
		return true, nil
	}
	return s.NeedsUpgrade(encoded)
}

func (h *Hasher) schemeFor(encoded string) (scheme, error) {
	switch {
	case strings.HasPrefix(encoded, argon2Prefix):
		return h.argon2, nil
	case isBcrypt(encoded):
		return h.bcrypt, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized hash prefix", ErrMalformedHash)
	}
}

func (h *Hasher) algorithmOf(s scheme) Algorithm {
	if _, ok := s.(*Bcrypt); ok {
		return AlgorithmBcrypt
	}
	return AlgorithmArgon2id
}
