package telephony

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTokenTTL = time.Hour

// tokenSigner carries the signing material for provider access tokens.
type tokenSigner struct {
	KeySID     string
	Secret     string
	AccountSID string
	AppSID     string
	Simulated  bool
}

type grantClaims struct {
	jwt.RegisteredClaims

	Grants map[string]any `json:"grants"`
}

// mintAccessToken produces a provider-compatible capability token: an
// HS256 JWT whose grants claim allows incoming voice and, when an app
// SID is configured, outgoing calls through it.
func mintAccessToken(s tokenSigner, p TokenParams) (AccessToken, error) {
	if s.KeySID == "" || s.Secret == "" {
		return AccessToken{}, errors.New("telephony: token signing key not configured")
	}

	identity := p.Identity
	if identity == "" {
		identity = uuid.NewString()
	}
	ttl := p.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	now := time.Now().UTC()
	exp := now.Add(ttl)

	voice := map[string]any{
		"incoming": map[string]any{"allow": true},
	}
	if s.AppSID != "" {
		voice["outgoing"] = map[string]any{"application_sid": s.AppSID}
	}

	claims := grantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        fmt.Sprintf("%s-%d", s.KeySID, now.Unix()),
			Issuer:    s.KeySID,
			Subject:   s.AccountSID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Grants: map[string]any{
			"identity": identity,
			"voice":    voice,
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["cty"] = "twilio-fpa;v=1"

	signed, err := t.SignedString([]byte(s.Secret))
	if err != nil {
		return AccessToken{}, err
	}

	return AccessToken{
		Token:     signed,
		Identity:  identity,
		ExpiresAt: exp,
		Simulated: s.Simulated,
	}, nil
}
