package service

import (
	"time"

	"github.com/cowritehq/cowrite/internal/identity/domain"
	"github.com/cowritehq/cowrite/pkg/jwtx"
)

// SessionService mints signed session credentials for authenticated users.
// Sessions are stateless: nothing is persisted, verification is signature
// plus expiry on the credential itself.
type SessionService struct {
	Signer jwtx.Signer
	Issuer string
	TTL    time.Duration
}

// Issue signs a session credential for the given user.
func (s *SessionService) Issue(user domain.User) (string, error) {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = jwtx.DefaultSessionTTL
	}

	claims := jwtx.NewSessionClaims(
		user.ID,
		user.Email,
		user.Name,
		ttl,
		s.Issuer,
		time.Now().UTC(),
	)

	return s.Signer.Sign(claims)
}
