package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/gelapp/gel/internal/models"
)

const (
	bcryptCost       = 12
	sessionDuration  = 30 * 24 * time.Hour
	sessionKeyPrefix = "session:"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
)

// AuthService issues and validates opaque bearer tokens. Redis holds the hot
// copy keyed by token hash; Postgres is the fallback when Redis is down.
type AuthService struct {
	db    DB
	redis *redis.Client
	users UserServiceInterface
}

func NewAuthService(db DB, redisClient *redis.Client, users UserServiceInterface) *AuthService {
	return &AuthService{
		db:    db,
		redis: redisClient,
		users: users,
	}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthService) VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken returns a fresh bearer token and its sha256 hash. Only the
// hash is ever stored.
func (s *AuthService) GenerateToken() (token string, hash string, err error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", fmt.Errorf("generating random bytes: %w", err)
	}

	token = hex.EncodeToString(bytes)
	return token, hashToken(token), nil
}

func (s *AuthService) CreateSession(ctx context.Context, userID uuid.UUID) (string, error) {
	token, tokenHash, err := s.GenerateToken()
	if err != nil {
		return "", err
	}

	if s.redis != nil {
		key := sessionKeyPrefix + tokenHash
		if err := s.redis.Set(ctx, key, userID.String(), sessionDuration).Err(); err == nil {
			return token, nil
		}
	}

	// Redis unavailable; persist the session in Postgres instead.
	expiresAt := time.Now().Add(sessionDuration)
	_, err = s.db.Exec(ctx,
		"INSERT INTO sessions (user_id, token_hash, expires_at) VALUES ($1, $2, $3)",
		userID, tokenHash, expiresAt,
	)
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}

	return token, nil
}

func (s *AuthService) ValidateToken(ctx context.Context, token string) (*models.User, error) {
	tokenHash := hashToken(token)

	if s.redis != nil {
		key := sessionKeyPrefix + tokenHash
		userIDStr, err := s.redis.Get(ctx, key).Result()
		if err == nil {
			// Sliding expiry on active sessions.
			s.redis.Expire(ctx, key, sessionDuration)

			userID, err := uuid.Parse(userIDStr)
			if err != nil {
				return nil, fmt.Errorf("parsing user id: %w", err)
			}
			return s.users.GetByID(ctx, userID)
		}
	}

	var session models.Session
	err := s.db.QueryRow(ctx,
		"SELECT id, user_id, token_hash, expires_at, created_at FROM sessions WHERE token_hash = $1",
		tokenHash,
	).Scan(&session.ID, &session.UserID, &session.TokenHash, &session.ExpiresAt, &session.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	if time.Now().After(session.ExpiresAt) {
		_, _ = s.db.Exec(ctx, "DELETE FROM sessions WHERE id = $1", session.ID)
		return nil, ErrSessionExpired
	}

	return s.users.GetByID(ctx, session.UserID)
}

func (s *AuthService) DeleteSession(ctx context.Context, token string) error {
	tokenHash := hashToken(token)

	if s.redis != nil {
		s.redis.Del(ctx, sessionKeyPrefix+tokenHash)
	}

	_, err := s.db.Exec(ctx, "DELETE FROM sessions WHERE token_hash = $1", tokenHash)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Login verifies credentials by username and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if !s.VerifyPassword(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
