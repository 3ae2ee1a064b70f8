package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret-test-secret-test-secret")

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newHSManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()
	cfg := Config{SigningMethod: MethodHS256, PrivateKey: testSecret, Issuer: "authcore"}
	if clock != nil {
		cfg.Now = clock.now
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func TestIssueAndVerify(t *testing.T) {
	m := newHSManager(t, nil)

	token, issued, err := m.Issue("user-1", TypeAccess, 15*time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.Type != TypeAccess {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ID == "" || claims.ID != issued.ID {
		t.Fatalf("expected jti %q, got %q", issued.ID, claims.ID)
	}
}

func TestIssueMintsFreshJTI(t *testing.T) {
	m := newHSManager(t, nil)

	_, a, _ := m.Issue("user-1", TypeAccess, time.Minute)
	_, b, _ := m.Issue("user-1", TypeAccess, time.Minute)
	if a.ID == b.ID {
		t.Fatal("expected distinct jti values")
	}
}

func TestVerifyExpiryBoundary(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := newHSManager(t, clock)

	token, claims, err := m.Issue("user-1", TypeChangePassword, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.t = claims.ExpiresAt.Time.Add(-time.Second)
	if _, err := m.Verify(token); err != nil {
		t.Fatalf("expected token valid before exp: %v", err)
	}

	clock.t = claims.ExpiresAt.Time
	if _, err := m.Verify(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired at exp, got %v", err)
	}

	clock.t = claims.ExpiresAt.Time.Add(time.Hour)
	if _, err := m.Verify(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired after exp, got %v", err)
	}
}

func TestVerifyNotYetValid(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := newHSManager(t, clock)

	token, _, err := m.Issue("user-1", TypeAccess, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.t = clock.t.Add(-10 * time.Minute)
	if _, err := m.Verify(token); !errors.Is(err, ErrNotYetValid) {
		t.Fatalf("expected ErrNotYetValid, got %v", err)
	}
}

func TestVerifySignatureIgnoresTimeClaims(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := newHSManager(t, clock)

	token, issued, err := m.Issue("user-1", TypeAccess, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.t = clock.t.Add(-10 * time.Minute)
	claims, err := m.VerifySignature(token)
	if err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
	if claims.ID != issued.ID || !claims.ExpiresAt.Equal(issued.ExpiresAt.Time) {
		t.Fatalf("unexpected claims %+v", claims)
	}

	forger, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: []byte("another-secret-another-secret-0000"), Issuer: "authcore"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	forged, _, err := forger.Issue("user-1", TypeAccess, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.VerifySignature(forged); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected foreign signature to be malformed, got %v", err)
	}

	other, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: testSecret, Issuer: "someone-else"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := other.VerifySignature(token); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected issuer mismatch to be malformed, got %v", err)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	m := newHSManager(t, nil)
	token, _, _ := m.Issue("user-1", TypeAccess, time.Minute)

	parts := strings.Split(token, ".")
	parts[2] = strings.Repeat("A", len(parts[2]))
	if _, err := m.Verify(strings.Join(parts, ".")); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for bad signature, got %v", err)
	}

	other, _ := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: []byte("another-secret-another-secret"), Issuer: "authcore"})
	if _, err := other.Verify(token); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for foreign key, got %v", err)
	}

	for _, garbage := range []string{"", "not.a.jwt", "eyJhbGciOiJub25lIn0.eyJzdWIiOiJ4In0."} {
		if _, err := m.Verify(garbage); !errors.Is(err, ErrMalformed) {
			t.Fatalf("expected ErrMalformed for %q, got %v", garbage, err)
		}
	}
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := Claims{Type: TypeAccess, RegisteredClaims: gjwt.RegisteredClaims{
		ID: "jti", Subject: "u", ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	hs, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
	if _, err := m.Verify(hs); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected wrong algorithm to be malformed, got %v", err)
	}

	ed, _ := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims).SignedString(priv)
	if _, err := m.Verify(ed); err != nil {
		t.Fatalf("expected ed25519 token to verify: %v", err)
	}
}

func TestVerifyRejectsMissingClaims(t *testing.T) {
	m := newHSManager(t, nil)
	exp := gjwt.NewNumericDate(time.Now().Add(time.Minute))

	cases := map[string]Claims{
		"missing jti":  {Type: TypeAccess, RegisteredClaims: gjwt.RegisteredClaims{Subject: "u", Issuer: "authcore", ExpiresAt: exp}},
		"missing exp":  {Type: TypeAccess, RegisteredClaims: gjwt.RegisteredClaims{ID: "j", Subject: "u", Issuer: "authcore"}},
		"unknown type": {Type: "refresh", RegisteredClaims: gjwt.RegisteredClaims{ID: "j", Subject: "u", Issuer: "authcore", ExpiresAt: exp}},
		"wrong issuer": {Type: TypeAccess, RegisteredClaims: gjwt.RegisteredClaims{ID: "j", Subject: "u", Issuer: "other", ExpiresAt: exp}},
	}
	for name, c := range cases {
		signed, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, c).SignedString(testSecret)
		if err != nil {
			t.Fatalf("%s: sign: %v", name, err)
		}
		if _, err := m.Verify(signed); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: expected ErrMalformed, got %v", name, err)
		}
	}
}

func TestVerifyKeyIDSelection(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	pub2, _ := newEdKeys(t)
	m, err := NewManager(Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv1,
		PublicKey:     pub1,
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub1},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, _, err := m.Issue("user-1", TypeAccess, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(token); err != nil {
		t.Fatalf("expected known kid to verify: %v", err)
	}

	m2, _ := NewManager(Config{SigningMethod: MethodEd25519, PublicKey: pub2, VerifyKeys: map[string][]byte{"k2": pub2}})
	if _, err := m2.Verify(token); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected unknown kid to be malformed, got %v", err)
	}
}

func TestVerifyOnlyManagerCannotIssue(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, _, err := m.Issue("user-1", TypeAccess, time.Minute); err == nil {
		t.Fatal("expected verify-only manager to refuse issuing")
	}
}

func TestVerifyAcceptsRetiredHSKey(t *testing.T) {
	oldKey := []byte("retired-secret-retired-secret-0000")
	issuer, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: oldKey, KeyID: "old"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, _, err := issuer.Issue("user-1", TypeAccess, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rotated, err := NewManager(Config{
		SigningMethod: MethodHS256,
		PrivateKey:    testSecret,
		KeyID:         "new",
		VerifyKeys:    map[string][]byte{"new": testSecret, "old": oldKey},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := rotated.Verify(token); err != nil {
		t.Fatalf("expected retired key to verify: %v", err)
	}

	if _, err := NewManager(Config{
		SigningMethod: MethodHS256,
		PrivateKey:    testSecret,
		KeyID:         "missing",
		VerifyKeys:    map[string][]byte{"new": testSecret},
	}); err == nil {
		t.Fatal("expected KeyID outside VerifyKeys to fail")
	}
}

func TestIssueValidatesInput(t *testing.T) {
	m := newHSManager(t, nil)
	if _, _, err := m.Issue("", TypeAccess, time.Minute); err == nil {
		t.Fatal("expected empty subject to fail")
	}
	if _, _, err := m.Issue("u", "refresh", time.Minute); err == nil {
		t.Fatal("expected unknown type to fail")
	}
	if _, _, err := m.Issue("u", TypeAccess, 0); err == nil {
		t.Fatal("expected zero ttl to fail")
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(Config{SigningMethod: MethodHS256}); err == nil {
		t.Fatal("expected missing secret to fail")
	}
	if _, err := NewManager(Config{SigningMethod: MethodEd25519}); err == nil {
		t.Fatal("expected missing public key to fail")
	}
	if _, err := NewManager(Config{SigningMethod: "rs256", PrivateKey: testSecret}); err == nil {
		t.Fatal("expected unsupported method to fail")
	}
}

func FuzzVerify(f *testing.F) {
	m, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: testSecret})
	if err != nil {
		f.Fatal(err)
	}
	valid, _, err := m.Issue("uid1", TypeAccess, time.Minute)
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJub25lIn0.eyJ1aWQiOiJ0ZXN0In0.")

	f.Fuzz(func(t *testing.T, input string) {
		claims, err := m.Verify(input)
		if err != nil {
			if !errors.Is(err, ErrMalformed) && !errors.Is(err, ErrExpired) && !errors.Is(err, ErrNotYetValid) {
				t.Fatalf("unclassified error: %v", err)
			}
			return
		}
		if claims == nil {
			t.Fatal("Verify returned nil claims without error")
		}
	})
}
