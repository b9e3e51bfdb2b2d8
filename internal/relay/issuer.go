// Package relay issues short-lived credentials for the STUN/TURN relay used
// to establish call media paths. Credentials are pure function output derived
// from the issuing time, the user id and a process-wide shared secret; nothing
// is stored.
package relay

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Credential is the time-boxed username/password pair a client presents to the
// relay, together with the relay endpoints.
type Credential struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	TTL      int      `json:"ttl"`
	URIs     []string `json:"uris"`
}

// Issuer derives relay credentials. The secret is injected once at startup and
// read-only thereafter.
type Issuer struct {
	secret []byte
	uris   []string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer constructs an issuer with the shared relay secret, the advertised
// relay URIs and the default credential lifetime.
func NewIssuer(secret string, uris []string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), uris: uris, ttl: ttl, now: time.Now}
}

// Issue derives a credential for the user valid for ttl (the issuer default
// when zero). The username embeds the expiry as unix seconds, so two calls at
// different instants yield different credentials for the same user.
func (i *Issuer) Issue(userID int, ttl time.Duration) Credential {
	if ttl <= 0 {
		ttl = i.ttl
	}
	expiry := i.now().Add(ttl).Unix()
	username := fmt.Sprintf("%d:%s", expiry, sanitize(fmt.Sprintf("%d", userID)))

	mac := hmac.New(sha1.New, i.secret)
	mac.Write([]byte(username))
	password := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return Credential{
		Username: username,
		Password: password,
		TTL:      int(ttl.Seconds()),
		URIs:     append([]string(nil), i.uris...),
	}
}

// sanitize restricts the user part to characters that cannot collide with the
// expiry delimiter or confuse the relay's username parsing.
func sanitize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
