package activitypub

import (
	"crypto/rsa"
	"strings"
	"testing"

	"github.com/deemkeen/fedipage/domain"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

func TestKeyPairsOrderAndCount(t *testing.T) {
	svc, database, _ := setupTestService(t)
	seedLocalActor(t, svc, database)

	pairs, err := svc.KeyPairs("blog")
	if err != nil {
		t.Fatalf("Failed to get key pairs: %v", err)
	}

	if len(pairs) != 2 {
		t.Fatalf("Expected exactly 2 key pairs, got %d", len(pairs))
	}
	if pairs[0].Algorithm != domain.KeyAlgorithmRSA {
		t.Errorf("Expected RSA first, got %s", pairs[0].Algorithm)
	}
	if pairs[1].Algorithm != domain.KeyAlgorithmEd25519 {
		t.Errorf("Expected Ed25519 second, got %s", pairs[1].Algorithm)
	}
}

func TestKeyPairsStableAcrossCalls(t *testing.T) {
	svc, database, _ := setupTestService(t)
	seedLocalActor(t, svc, database)

	first, err := svc.KeyPairs("blog")
	if err != nil {
		t.Fatalf("Failed on first call: %v", err)
	}
	second, err := svc.KeyPairs("blog")
	if err != nil {
		t.Fatalf("Failed on second call: %v", err)
	}

	for i := range first {
		if first[i].PrivateJwk != second[i].PrivateJwk {
			t.Errorf("Private JWK for %s changed between calls", first[i].Algorithm)
		}
		if first[i].PublicJwk != second[i].PublicJwk {
			t.Errorf("Public JWK for %s changed between calls", first[i].Algorithm)
		}
	}
}

func TestKeyPairsRoundTrip(t *testing.T) {
	svc, database, _ := setupTestService(t)
	seedLocalActor(t, svc, database)

	pairs, err := svc.KeyPairs("blog")
	if err != nil {
		t.Fatalf("Failed to get key pairs: %v", err)
	}

	key, err := jwk.ParseKey([]byte(pairs[0].PrivateJwk))
	if err != nil {
		t.Fatalf("Stored private JWK does not parse: %v", err)
	}
	var priv rsa.PrivateKey
	if err := key.Raw(&priv); err != nil {
		t.Fatalf("Stored JWK does not materialize as RSA: %v", err)
	}
	if priv.N.BitLen() != 2048 {
		t.Errorf("Expected 2048-bit RSA key, got %d", priv.N.BitLen())
	}
}

func TestKeyPairsUnknownActor(t *testing.T) {
	svc, _, _ := setupTestService(t)

	if _, err := svc.KeyPairs("nobody"); err == nil {
		t.Error("Expected error for unknown actor")
	}
}

func TestPublicKeyPem(t *testing.T) {
	svc, database, _ := setupTestService(t)
	seedLocalActor(t, svc, database)

	pairs, err := svc.KeyPairs("blog")
	if err != nil {
		t.Fatalf("Failed to get key pairs: %v", err)
	}

	pem, err := publicKeyPem(pairs[0].PublicJwk)
	if err != nil {
		t.Fatalf("Failed to render PEM: %v", err)
	}
	if !strings.HasPrefix(pem, "-----BEGIN PUBLIC KEY-----") {
		t.Errorf("Expected PKIX PEM block, got: %.40s", pem)
	}
}
