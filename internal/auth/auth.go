// Package auth issues and verifies the host and participant tokens.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"live-quiz-service/internal/errors"
)

type Role string

const (
	RoleHost        Role = "host"
	RoleParticipant Role = "participant"
)

var (
	ErrUnauthenticated = errors.New(errors.CodeUnauthenticated, errors.WithMessagef("missing or invalid token"))
	ErrForbidden       = errors.New(errors.CodePermissionDenied, errors.WithMessagef("token does not grant this action"))
)

// Claims identify the bearer within one session.
type Claims struct {
	Role          Role   `json:"role"`
	SessionID     string `json:"sid"`
	ParticipantID string `json:"pid,omitempty"`
	jwt.RegisteredClaims
}

// Can reports whether the claims allow acting on the given session as role.
func (c *Claims) Can(role Role, sessionID string) bool {
	return c != nil && c.Role == role && c.SessionID == sessionID
}

// Owns reports whether the claims belong to the given participant.
func (c *Claims) Owns(sessionID, participantID string) bool {
	return c.Can(RoleParticipant, sessionID) && c.ParticipantID == participantID
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *Issuer) IssueHost(sessionID string) (string, error) {
	return i.issue(Claims{Role: RoleHost, SessionID: sessionID})
}

func (i *Issuer) IssueParticipant(sessionID, participantID string) (string, error) {
	return i.issue(Claims{Role: RoleParticipant, SessionID: sessionID, ParticipantID: participantID})
}

func (i *Issuer) issue(c Claims) (string, error) {
	now := i.now()
	c.IssuedAt = jwt.NewNumericDate(now)
	if i.ttl > 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns its claims.
func (i *Issuer) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	var c Claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, ErrUnauthenticated.Wrap(err)
	}
	if c.Role != RoleHost && c.Role != RoleParticipant {
		return nil, ErrUnauthenticated.Wrap(fmt.Errorf("unknown role %q", c.Role))
	}
	return &c, nil
}
