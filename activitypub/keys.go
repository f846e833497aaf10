package activitypub

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/deemkeen/fedipage/db"
	"github.com/deemkeen/fedipage/domain"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// KeyPair is one algorithm's key material for a local actor
type KeyPair struct {
	Algorithm  domain.KeyAlgorithm
	PrivateJwk string
	PublicJwk  string
}

// KeyPairs returns the actor's key pairs in fixed order (RSA first, then
// Ed25519); index 0 is the actor's primary key. Missing pairs are generated
// lazily and persisted as JWK. Concurrent first access for the same actor and
// algorithm yields exactly one persisted pair: the losing writer hits the
// uniqueness constraint and re-reads the winner's row.
func (s *Service) KeyPairs(username string) ([]KeyPair, error) {
	actor, err := s.localActor(username)
	if err != nil {
		return nil, err
	}

	pairs := make([]KeyPair, 0, len(domain.KeyAlgorithms))
	for _, algorithm := range domain.KeyAlgorithms {
		err, stored := s.db.ReadKey(actor.Id, algorithm)
		if err == nil {
			pairs = append(pairs, KeyPair{
				Algorithm:  algorithm,
				PrivateJwk: stored.PrivateJwk,
				PublicJwk:  stored.PublicJwk,
			})
			continue
		}

		privateJwk, publicJwk, err := generateKeyPair(algorithm)
		if err != nil {
			return nil, fmt.Errorf("key generation failed for %s: %w", algorithm, err)
		}

		key := &domain.Key{
			ActorId:    actor.Id,
			Algorithm:  algorithm,
			PrivateJwk: privateJwk,
			PublicJwk:  publicJwk,
			CreatedAt:  time.Now(),
		}
		if err := s.db.CreateKey(key); err != nil {
			if !db.IsUniqueViolation(err) {
				return nil, fmt.Errorf("failed to persist %s key: %w", algorithm, err)
			}
			// A concurrent writer won; use its pair
			rerr, winner := s.db.ReadKey(actor.Id, algorithm)
			if rerr != nil {
				return nil, fmt.Errorf("failed to re-read %s key: %w", algorithm, rerr)
			}
			key = winner
		}

		pairs = append(pairs, KeyPair{
			Algorithm:  algorithm,
			PrivateJwk: key.PrivateJwk,
			PublicJwk:  key.PublicJwk,
		})
	}

	return pairs, nil
}

// generateKeyPair creates a fresh pair for the algorithm and serializes both
// halves to JWK
func generateKeyPair(algorithm domain.KeyAlgorithm) (string, string, error) {
	switch algorithm {
	case domain.KeyAlgorithmRSA:
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return "", "", err
		}
		return serializeJwkPair(priv, &priv.PublicKey)
	case domain.KeyAlgorithmEd25519:
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return "", "", err
		}
		return serializeJwkPair(priv, pub)
	default:
		return "", "", fmt.Errorf("unsupported key algorithm: %s", algorithm)
	}
}

func serializeJwkPair(private interface{}, public interface{}) (string, string, error) {
	privKey, err := jwk.FromRaw(private)
	if err != nil {
		return "", "", fmt.Errorf("failed to build private JWK: %w", err)
	}
	pubKey, err := jwk.FromRaw(public)
	if err != nil {
		return "", "", fmt.Errorf("failed to build public JWK: %w", err)
	}

	privJSON, err := json.Marshal(privKey)
	if err != nil {
		return "", "", err
	}
	pubJSON, err := json.Marshal(pubKey)
	if err != nil {
		return "", "", err
	}
	return string(privJSON), string(pubJSON), nil
}

// rsaPrivateKey deserializes the actor's primary (RSA) private key for
// request signing
func (s *Service) rsaPrivateKey(username string) (*rsa.PrivateKey, error) {
	pairs, err := s.KeyPairs(username)
	if err != nil {
		return nil, err
	}

	key, err := jwk.ParseKey([]byte(pairs[0].PrivateJwk))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private JWK: %w", err)
	}

	var priv rsa.PrivateKey
	if err := key.Raw(&priv); err != nil {
		return nil, fmt.Errorf("failed to materialize RSA key: %w", err)
	}
	return &priv, nil
}

// publicKeyPem renders a public JWK as PKIX PEM for the publicKey field of
// the actor document
func publicKeyPem(publicJwk string) (string, error) {
	key, err := jwk.ParseKey([]byte(publicJwk))
	if err != nil {
		return "", fmt.Errorf("failed to parse public JWK: %w", err)
	}

	var raw interface{}
	if err := key.Raw(&raw); err != nil {
		return "", fmt.Errorf("failed to materialize public key: %w", err)
	}

	der, err := x509.MarshalPKIXPublicKey(raw)
	if err != nil {
		return "", fmt.Errorf("failed to encode public key: %w", err)
	}

	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// publicJwkMap parses a public JWK into a generic map for assertionMethod
// entries
func publicJwkMap(publicJwk string) (map[string]interface{}, error) {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(publicJwk), &m); err != nil {
		return nil, fmt.Errorf("failed to parse public JWK: %w", err)
	}
	return m, nil
}
