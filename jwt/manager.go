package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the JWS algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with a shared secret (HMAC-SHA256).
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 private key and verifies with the public key.
	MethodEd25519 SigningMethod = "ed25519"
)

// TokenType distinguishes full access tokens from the restricted token issued
// while a password change is pending.
type TokenType string

const (
	TypeAccess         TokenType = "access"
	TypeChangePassword TokenType = "change-password"
)

// Valid reports whether t is a known token type.
func (t TokenType) Valid() bool {
	return t == TypeAccess || t == TypeChangePassword
}

var (
	// ErrExpired is returned when the token's exp is not after the current time.
	ErrExpired = errors.New("jwt: token expired")
	// ErrNotYetValid is returned when nbf or iat lies in the future.
	ErrNotYetValid = errors.New("jwt: token not yet valid")
	// ErrMalformed covers bad structure, bad signature, wrong algorithm and missing claims.
	ErrMalformed = errors.New("jwt: malformed token")
)

// Config defines signing material and validation options. VerifyKeys, when
// set, selects the verification key by the token's kid header and lets a
// manager accept tokens signed under retired keys.
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	KeyID         string
	VerifyKeys    map[string][]byte

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Manager issues and verifies signed access tokens. It never consults the
// revocation registry.
type Manager struct {
	method   jwt.SigningMethod
	issuer   string
	audience string
	keyID    string
	now      func() time.Time

	// signKey is nil for verify-only managers.
	signKey any
	// verifyKey is used when byKID is empty.
	verifyKey any
	byKID     map[string]any
}

// Claims is the signed payload of an access or change-password token.
type Claims struct {
	Type TokenType `json:"type"`
	jwt.RegisteredClaims
}

// NewManager parses every key up front. It fails when the signing
// configuration is incomplete or a key cannot be parsed.
func NewManager(cfg Config) (*Manager, error) {
	m := &Manager{
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		keyID:    strings.TrimSpace(cfg.KeyID),
		now:      cfg.Now,
		byKID:    make(map[string]any, len(cfg.VerifyKeys)),
	}
	if m.now == nil {
		m.now = time.Now
	}

	var parseVerify func([]byte) (any, error)
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
		m.method = jwt.SigningMethodHS256
		m.signKey = cfg.PrivateKey
		m.verifyKey = cfg.PrivateKey
		parseVerify = func(b []byte) (any, error) { return b, nil }
	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			m.signKey = priv
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			m.verifyKey = pub
		}
		if len(cfg.VerifyKeys) == 0 && m.verifyKey == nil {
			return nil, errors.New("ed25519 requires public key or verify key set")
		}
		parseVerify = func(b []byte) (any, error) { return parseEdPublicKey(b) }
	default:
		return nil, errors.New("unsupported signing method")
	}

	for kid, raw := range cfg.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("verify key map contains empty kid")
		}
		key, err := parseVerify(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid verify key for kid %q: %w", kid, err)
		}
		m.byKID[kid] = key
	}
	if m.keyID != "" && len(m.byKID) > 0 {
		if _, ok := m.byKID[m.keyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}

	return m, nil
}

// Issue signs a token of the given type for subject, valid for ttl.
//
// Every call mints a fresh random jti. The returned claims mirror the signed payload.
func (j *Manager) Issue(subject string, typ TokenType, ttl time.Duration) (string, *Claims, error) {
	if subject == "" {
		return "", nil, errors.New("subject is required")
	}
	if !typ.Valid() {
		return "", nil, fmt.Errorf("unknown token type %q", typ)
	}
	if ttl <= 0 {
		return "", nil, errors.New("ttl must be positive")
	}

	if j.signKey == nil {
		return "", nil, errors.New("manager has no signing key")
	}

	now := j.now()
	claims := &Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if j.audience != "" {
		claims.Audience = jwt.ClaimStrings{j.audience}
	}

	token := jwt.NewWithClaims(j.method, claims)
	if j.keyID != "" {
		token.Header["kid"] = j.keyID
	}

	signed, err := token.SignedString(j.signKey)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Verify checks signature, algorithm and time claims and returns the payload.
//
// Errors wrap exactly one of ErrExpired, ErrNotYetValid or ErrMalformed.
// No clock leeway is applied: a token is expired once now >= exp.
func (j *Manager) Verify(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		options = append(options, jwt.WithIssuer(j.issuer))
	}
	if j.audience != "" {
		options = append(options, jwt.WithAudience(j.audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, j.keyFunc)
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing jti or sub", ErrMalformed)
	}
	if !claims.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown token type %q", ErrMalformed, claims.Type)
	}
	if !j.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrExpired
	}
	return claims, nil
}

// VerifySignature checks signature, algorithm, issuer, audience and required
// claims but ignores exp, nbf and iat. It lets a caller act on a token that a
// skewed clock reports as not yet valid, e.g. to revoke it on logout.
func (j *Manager) VerifySignature(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, j.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}
	if claims.ID == "" || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing jti, sub or exp", ErrMalformed)
	}
	if !claims.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown token type %q", ErrMalformed, claims.Type)
	}
	if j.issuer != "" && claims.Issuer != j.issuer {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrMalformed)
	}
	if j.audience != "" && !slices.Contains(claims.Audience, j.audience) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrMalformed)
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ErrNotYetValid
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

func (j *Manager) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != j.method.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	kid, _ := t.Header["kid"].(string)
	switch {
	case len(j.byKID) > 0:
		if key, ok := j.byKID[kid]; ok && kid != "" {
			return key, nil
		}
		return nil, errors.New("unknown kid")
	case j.keyID != "" && kid != j.keyID:
		return nil, errors.New("unknown kid")
	default:
		return j.verifyKey, nil
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
