package v1

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tinoosan/bank/internal/service/account"
)

// SessionConfig configures the bearer tokens handed out by POST /v1/sessions.
type SessionConfig struct {
	// Secret signs tokens with HS256. Empty generates a random per-process
	// secret, so tokens do not survive a restart.
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// sessionClaims carries an account.Session: the subject is the account
// number, cid the owning customer.
type sessionClaims struct {
	CustomerID string `json:"cid"`
	jwt.RegisteredClaims
}

type sessionKeeper struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func newSessionKeeper(cfg SessionConfig) (*sessionKeeper, error) {
	secret := cfg.Secret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("session secret: %w", err)
		}
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &sessionKeeper{secret: secret, ttl: ttl, issuer: cfg.Issuer}, nil
}

func (k *sessionKeeper) issue(sess account.Session) (string, time.Time, error) {
	exp := sess.StartedAt.Add(k.ttl)
	claims := sessionClaims{
		CustomerID: sess.CustomerID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    k.issuer,
			Subject:   sess.AccountNumber,
			IssuedAt:  jwt.NewNumericDate(sess.StartedAt),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(k.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

func (k *sessionKeeper) parse(raw string) (account.Session, error) {
	var c sessionClaims
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if k.issuer != "" {
		opts = append(opts, jwt.WithIssuer(k.issuer))
	}
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) { return k.secret, nil }, opts...)
	if err != nil {
		return account.Session{}, err
	}
	if c.ExpiresAt == nil || c.IssuedAt == nil || c.Subject == "" {
		return account.Session{}, errors.New("incomplete session claims")
	}
	cid, err := uuid.Parse(c.CustomerID)
	if err != nil {
		return account.Session{}, err
	}
	return account.Session{AccountNumber: c.Subject, CustomerID: cid, StartedAt: c.IssuedAt.Time.UTC()}, nil
}

func parseBearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[len("Bearer "):])
	return tok, tok != ""
}

const ctxKeySession ctxKey = "session"

// requireSession rejects requests without a valid bearer session with 401
// and stores the session in the request context otherwise.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := parseBearerToken(r)
		if !ok {
			unauthorized(w, "session_invalid")
			return
		}
		sess, err := s.sessions.parse(tok)
		if err != nil {
			s.log.Debug("session rejected", "err", err)
			unauthorized(w, "session_invalid")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeySession, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) account.Session {
	sess, _ := ctx.Value(ctxKeySession).(account.Session)
	return sess
}
