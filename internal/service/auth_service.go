package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vedran77/covoit/internal/domain"
	"github.com/vedran77/covoit/internal/repository"
	apperr "github.com/vedran77/covoit/pkg/errors"
	"github.com/vedran77/covoit/pkg/logger"
	"golang.org/x/crypto/argon2"
)

type AuthService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	log       *logger.Logger
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string, tokenTTL time.Duration, log *logger.Logger) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		log:       log,
	}
}

type RegisterInput struct {
	Email    string      `json:"email" validate:"required,email"`
	FullName string      `json:"full_name" validate:"required,notblank,max=100"`
	Password string      `json:"password" validate:"required,password"`
	Role     domain.Role `json:"role" validate:"required,oneof=passenger driver"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
}

// Claims carried by access tokens.
type Claims struct {
	UserID uuid.UUID
	Role   domain.Role
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	if input.Role != domain.RolePassenger && input.Role != domain.RoleDriver {
		return nil, apperr.Validation("role", "role must be one of: passenger driver")
	}

	user, err := s.createUser(ctx, input.Email, input.FullName, input.Password, input.Role)
	if err != nil {
		return nil, err
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}

	return &AuthResponse{User: user, AccessToken: token}, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, storeErr(err)
	}
	if user == nil {
		return nil, apperr.ErrInvalidCreds
	}

	if !verifyPassword(input.Password, user.PasswordHash) {
		return nil, apperr.ErrInvalidCreds
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}

	return &AuthResponse{User: user, AccessToken: token}, nil
}

// EnsureAdmin creates the configured admin account on first boot.
// Empty email or password disables it.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, name string) error {
	if email == "" || password == "" {
		return nil
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return storeErr(err)
	}
	if existing != nil {
		return nil
	}

	if _, err := s.createUser(ctx, email, name, password, domain.RoleAdmin); err != nil {
		return err
	}
	s.log.Info("admin account created", "email", email)
	return nil
}

// ParseToken validates an access token and returns its claims.
func (s *AuthService) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, apperr.Unauthorized("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperr.Unauthorized("invalid token claims")
	}

	sub, _ := claims.GetSubject()
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, apperr.Unauthorized("invalid user id in token")
	}

	role, _ := claims["role"].(string)
	if !domain.Role(role).Valid() {
		return nil, apperr.Unauthorized("invalid role in token")
	}

	return &Claims{UserID: userID, Role: domain.Role(role)}, nil
}

func (s *AuthService) createUser(ctx context.Context, email, fullName, password string, role domain.Role) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, storeErr(err)
	}
	if existing != nil {
		return nil, apperr.ErrEmailTaken
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// A concurrent registration can still win; the repository reports it as
	// ErrEmailTaken.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, storeErr(err)
	}
	return user, nil
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": string(user.Role),
		"exp":  now.Add(s.tokenTTL).Unix(),
		"iat":  now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)

	return fmt.Sprintf("%s:%s",
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func verifyPassword(password, encoded string) bool {
	saltB64, hashB64, ok := strings.Cut(encoded, ":")
	if !ok {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(saltB64)
	if err != nil {
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(hashB64)
	if err != nil {
		return false
	}

	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return subtle.ConstantTimeCompare(hash, expectedHash) == 1
}
