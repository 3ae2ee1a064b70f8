package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	argon2Prefix          = "$argon2id$"
	argon2ID              = "argon2id"
)

// Argon2Params holds the argon2id cost parameters used for new hashes.
type Argon2Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Argon2 hashes and verifies PHC-encoded argon2id strings.
//
// Argon2 is immutable after construction and safe for concurrent use.
type Argon2 struct {
	params Argon2Params
}

type phcHash struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	sum         []byte
}

// NewArgon2 validates params and returns an argon2id hasher.
func NewArgon2(params Argon2Params) (*Argon2, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &Argon2{params: params}, nil
}

// Hash derives a fresh salted argon2id hash of plaintext.
//
// Plaintext bytes are used exactly as provided; no Unicode normalization is applied.
func (a *Argon2) Hash(plaintext string) (string, error) {
	salt := make([]byte, a.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	sum := argon2.IDKey([]byte(plaintext), salt, a.params.Time, a.params.Memory, a.params.Parallelism, a.params.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2ID,
		argon2.Version,
		a.params.Memory,
		a.params.Time,
		a.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Verify reports whether plaintext matches encoded. A malformed encoded
// value yields (false, err).
func (a *Argon2) Verify(plaintext, encoded string) (bool, error) {
	parsed, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(plaintext), parsed.salt, parsed.time, parsed.memory, parsed.parallelism, uint32(len(parsed.sum)))
	return subtle.ConstantTimeCompare(computed, parsed.sum) == 1, nil
}

// NeedsUpgrade reports whether encoded was produced with weaker parameters
// than the hasher is configured with.
func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	parsed, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	switch {
	case a.params.Memory > parsed.memory,
		a.params.Time > parsed.time,
		a.params.Parallelism > parsed.parallelism,
		a.params.KeyLength != uint32(len(parsed.sum)):
		return true, nil
	}
	return false, nil
}

func (p Argon2Params) validate() error {
	if p.Memory < minMemoryKB {
		return errors.New("argon2 memory must be >= 8192 KB")
	}
	if p.Time < minTimeCost {
		return errors.New("argon2 time must be >= 1")
	}
	if p.Parallelism < minParallelism {
		return errors.New("argon2 parallelism must be >= 1")
	}
	if p.SaltLength < minSaltLength {
		return errors.New("argon2 salt length must be >= 16")
	}
	if p.KeyLength < minKeyLength {
		return errors.New("argon2 key length must be >= 16")
	}
	return nil
}

// decodeB64 accepts both padded and unpadded standard base64, since PHC
// strings written by other libraries differ on padding.
func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func parsePHC(encoded string) (*phcHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: invalid PHC format", ErrMalformedHash)
	}
	if parts[1] != argon2ID {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrMalformedHash, parts[1])
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") {
		return nil, fmt.Errorf("%w: invalid argon2 version", ErrMalformedHash)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported argon2 version %d", ErrMalformedHash, version)
	}

	out := &phcHash{}
	if err := out.parseParams(parts[3]); err != nil {
		return nil, err
	}

	out.salt, err = decodeB64(parts[4])
	if err != nil || len(out.salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: invalid salt", ErrMalformedHash)
	}
	out.sum, err = decodeB64(parts[5])
	if err != nil || len(out.sum) < int(minKeyLength) {
		return nil, fmt.Errorf("%w: invalid hash", ErrMalformedHash)
	}
	return out, nil
}

func (h *phcHash) parseParams(part string) error {
	var memorySet, timeSet, parallelismSet bool

	for _, pair := range strings.Split(part, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("%w: invalid parameter entry", ErrMalformedHash)
		}

		switch key {
		case "m":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || v < uint64(minMemoryKB) {
				return fmt.Errorf("%w: invalid memory parameter", ErrMalformedHash)
			}
			h.memory, memorySet = uint32(v), true
		case "t":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || v < uint64(minTimeCost) {
				return fmt.Errorf("%w: invalid time parameter", ErrMalformedHash)
			}
			h.time, timeSet = uint32(v), true
		case "p":
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil || v < uint64(minParallelism) {
				return fmt.Errorf("%w: invalid parallelism parameter", ErrMalformedHash)
			}
			h.parallelism, parallelismSet = uint8(v), true
		default:
			return fmt.Errorf("%w: unsupported parameter %q", ErrMalformedHash, key)
		}
	}

	if !memorySet || !timeSet || !parallelismSet {
		return fmt.Errorf("%w: missing parameters", ErrMalformedHash)
	}
	return nil
}
