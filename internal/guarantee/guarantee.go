// Package guarantee verifies trustworthiness claims attached to records.
// A guarantee is a signed, time-bounded token binding a record id to an
// authorized guarantor; records failing the test are dropped from listings
// and hidden from direct lookup.
package guarantee

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/TravelMesh/read_layer/pkg/logger"
)

// Verifier checks guarantee tokens against a shared signing key. A nil
// Verifier (or one with no key) trusts every record, which keeps development
// setups working without a guarantor.
type Verifier struct {
	key []byte
	log *logger.Logger
}

// NewVerifier creates a verifier for HMAC-signed guarantee tokens. An empty
// key disables verification.
func NewVerifier(key string, log *logger.Logger) *Verifier {
	if log == nil {
		log = logger.NewDefault("guarantee")
	}
	if key == "" {
		return &Verifier{log: log}
	}
	return &Verifier{key: []byte(key), log: log}
}

// Enabled reports whether the verifier actually checks anything.
func (v *Verifier) Enabled() bool { return v != nil && len(v.key) > 0 }

// PassesTrustworthinessTest reports whether the guarantee payload is a valid,
// unexpired token bound to the given record id.
func (v *Verifier) PassesTrustworthinessTest(id string, payload any) bool {
	if !v.Enabled() {
		return true
	}
	token, ok := payload.(string)
	if !ok || token == "" {
		return false
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.key, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		v.log.WithField("id", id).WithError(err).Debug("guarantee rejected")
		return false
	}

	subject, err := claims.GetSubject()
	if err != nil || subject != id {
		v.log.WithField("id", id).Debug("guarantee bound to different record")
		return false
	}
	return true
}
