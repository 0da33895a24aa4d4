package app

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// Authenticator checks the single shared administrative credential.
type Authenticator struct {
	hash []byte
}

// NewAuthenticator prefers a bcrypt hash; a plaintext password is hashed once here.
// With neither configured every login fails.
func NewAuthenticator(password, passwordHash string) (*Authenticator, error) {
	if passwordHash != "" {
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, fmt.Errorf("invalid admin password hash: %w", err)
		}
		return &Authenticator{hash: []byte(passwordHash)}, nil
	}
	if password == "" {
		log.Warn().Str("module", "app.auth").Msg("no admin credential configured, admin login disabled")
		return &Authenticator{}, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	return &Authenticator{hash: hash}, nil
}

func (a *Authenticator) Check(password string) bool {
	if a == nil || len(a.hash) == 0 || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
}
