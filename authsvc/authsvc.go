// Package authsvc issues and verifies password-based sessions.
package authsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"foodconnect/models"
	"foodconnect/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidRole        = errors.New("invalid role, must be one of: customer, driver, vendor, admin")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
)

const revokedPrefix = "auth:revoked:"

type Claims struct {
	UserID string          `json:"user_id"`
	Email  string          `json:"email"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

type SignUpInput struct {
	Name     string
	Email    string
	Password string
	Role     models.UserRole
	Phone    string
}

type Service struct {
	store  *store.Store
	rdb    *redis.Client
	secret []byte
	ttl    time.Duration
	log    *slog.Logger
	now    func() time.Time
}

func New(st *store.Store, rdb *redis.Client, secret []byte, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{store: st, rdb: rdb, secret: secret, ttl: ttl, log: log, now: time.Now}
}

// SignUp creates the user and returns a fresh session; role defaults to customer
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*models.Session, error) {
	if in.Role == "" {
		in.Role = models.RoleCustomer
	}
	if !in.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if len(in.Password) < 6 {
		return nil, ErrWeakPassword
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if _, err := s.store.UserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:         in.Name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         in.Role,
		Phone:        in.Phone,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user_id", user.ID, "role", user.Role)
	return s.issue(user)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	user, err := s.store.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

// SignOut revokes the token until it would have expired anyway
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	remaining := claims.ExpiresAt.Time.Sub(s.now())
	if remaining <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, revokedPrefix+claims.ID, claims.UserID, remaining).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Verify parses token and rejects revoked ones and those of deleted accounts
func (s *Service) Verify(ctx context.Context, token string) (*Claims, error) {
	claims, _, err := s.verify(ctx, token)
	return claims, err
}

// Session rebuilds the session a still-valid token belongs to
func (s *Service) Session(ctx context.Context, token string) (*models.Session, error) {
	claims, user, err := s.verify(ctx, token)
	if err != nil {
		return nil, err
	}
	return &models.Session{User: user, AccessToken: token, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// verify accepts a token only while it is unrevoked and its account still exists
func (s *Service) verify(ctx context.Context, token string) (*Claims, *models.User, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, nil, err
	}
	n, err := s.rdb.Exists(ctx, revokedPrefix+claims.ID).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("check revocation: %w", err)
	}
	if n > 0 {
		return nil, nil, ErrInvalidToken
	}
	user, err := s.store.UserByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, ErrInvalidToken
	}
	if err != nil {
		return nil, nil, err
	}
	return claims, user, nil
}

func (s *Service) issue(user *models.User) (*models.Session, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &models.Session{User: user, AccessToken: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (s *Service) parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
