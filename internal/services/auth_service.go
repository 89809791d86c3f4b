package services

import (
	"chatmate-api/internal/models"
	"chatmate-api/internal/pkg/errors"
	"chatmate-api/internal/repository"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
)

type contextKey string

const IdentityContextKey contextKey = "identity"

// GoogleCertsURL publishes the x509 certificates Firebase ID tokens are signed with.
const GoogleCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

// Identity is a verified caller.
type Identity struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"-"`
}

type AuthService interface {
	// VerifyToken returns errors.ErrInvalidIdentity for any token that does
	// not verify.
	VerifyToken(ctx context.Context, token string) (*Identity, error)
	RecordLogin(ctx context.Context, identity *Identity) error
}

type verifyFunc func(ctx context.Context, token string) (*Identity, error)

type authService struct {
	verify   verifyFunc
	userRepo repository.UserRepository
}

func (s *authService) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, invalidIdentity(nil, "missing token")
	}
	return s.verify(ctx, token)
}

func (s *authService) RecordLogin(ctx context.Context, identity *Identity) error {
	return s.userRepo.Upsert(ctx, &models.User{
		ID:          identity.UserID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		LastLoginAt: time.Now().UTC(),
	})
}

func invalidIdentity(err error, message string) error {
	return &errors.Error{
		Err:     err,
		Message: message,
		Code:    "INVALID_TOKEN",
		Kind:    errors.ErrInvalidIdentity,
	}
}

type firebaseClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.StandardClaims
}

type FirebaseOption func(*certCache)

// WithCertsURL overrides where signing certificates are fetched from.
func WithCertsURL(url string) FirebaseOption {
	return func(c *certCache) { c.url = url }
}

func WithHTTPClient(client *http.Client) FirebaseOption {
	return func(c *certCache) { c.client = client }
}

// NewFirebaseAuthService verifies Firebase ID tokens (RS256) issued for projectID.
func NewFirebaseAuthService(projectID string, userRepo repository.UserRepository, opts ...FirebaseOption) AuthService {
	certs := &certCache{
		url:    GoogleCertsURL,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(certs)
	}

	issuer := "https://securetoken.google.com/" + projectID

	return &authService{
		userRepo: userRepo,
		verify: func(ctx context.Context, tokenString string) (*Identity, error) {
			claims := &firebaseClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodRS256.Alg() {
					return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
				}
				kid, _ := token.Header["kid"].(string)
				return certs.key(ctx, kid)
			})
			if err != nil || !token.Valid {
				return nil, invalidIdentity(err, "invalid token")
			}

			switch {
			case claims.Audience != projectID:
				return nil, invalidIdentity(nil, "token audience mismatch")
			case claims.Issuer != issuer:
				return nil, invalidIdentity(nil, "token issuer mismatch")
			case claims.Subject == "":
				return nil, invalidIdentity(nil, "token has no subject")
			}

			return &Identity{
				UserID:      claims.Subject,
				Email:       claims.Email,
				DisplayName: claims.Name,
			}, nil
		},
	}
}

// certCache holds the Google signing keys for as long as the response's
// Cache-Control max-age allows.
type certCache struct {
	url    string
	client *http.Client
	now    func() time.Time

	mu      sync.Mutex
	keys    map[string]*rsa.PublicKey
	expires time.Time
}

func (c *certCache) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.keys == nil || c.now().After(c.expires) {
		if err := c.refresh(ctx); err != nil {
			return nil, err
		}
	}

	key, ok := c.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return key, nil
}

// refresh is called with mu held.
func (c *certCache) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch signing certificates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch signing certificates: status %d", resp.StatusCode)
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return fmt.Errorf("decode signing certificates: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, pem := range certs {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return fmt.Errorf("parse certificate %q: %w", kid, err)
		}
		keys[kid] = key
	}

	c.keys = keys
	c.expires = c.now().Add(maxAge(resp.Header.Get("Cache-Control")))
	return nil
}

// maxAge reads max-age from a Cache-Control header. Zero means fetch again
// on the next token.
func maxAge(header string) time.Duration {
	for _, directive := range strings.Split(header, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(directive), "=")
		if !ok || !strings.EqualFold(name, "max-age") {
			continue
		}
		secs, err := strconv.Atoi(value)
		if err != nil || secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	return 0
}

type devClaims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.StandardClaims
}

// NewJWTAuthService verifies HS256 tokens signed with secret, as minted by
// IssueToken. For local development and tests.
func NewJWTAuthService(secret string, userRepo repository.UserRepository) AuthService {
	return &authService{
		userRepo: userRepo,
		verify: func(ctx context.Context, tokenString string) (*Identity, error) {
			claims := &devClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return nil, invalidIdentity(err, "invalid token")
			}

			userID := claims.Subject
			if userID == "" {
				userID = claims.UserID
			}
			if userID == "" {
				return nil, invalidIdentity(nil, "token has no subject")
			}
			return &Identity{UserID: userID, Email: claims.Email}, nil
		},
	}
}

// IssueToken mints an HS256 token accepted by NewJWTAuthService.
func IssueToken(secret, userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, devClaims{
		Email: email,
		StandardClaims: jwt.StandardClaims{
			Subject:   userID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	})
	return token.SignedString([]byte(secret))
}

func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, identity)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(IdentityContextKey).(*Identity)
	return identity, ok
}
