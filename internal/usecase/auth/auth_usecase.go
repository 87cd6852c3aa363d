package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/gdugdh24/rakshak-backend/internal/health"
	"github.com/gdugdh24/rakshak-backend/internal/repository"
	"github.com/gdugdh24/rakshak-backend/internal/usecase/profile"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ProfileStore provisions the profile behind a verified identity.
type ProfileStore interface {
	GetOrCreateProfile(ctx context.Context, identity domain.AuthIdentity) (*domain.User, error)
}

type AuthUseCase struct {
	profiles       ProfileStore
	userRepo       repository.UserRepository
	sessionRepo    repository.SessionRepository
	breaker        *health.Breaker
	logger         *zap.Logger
	jwtSecret      string
	identitySecret string
	tokenTTL       time.Duration
	bcryptCost     int
}

func NewAuthUseCase(
	profiles ProfileStore,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	breaker *health.Breaker,
	logger *zap.Logger,
	jwtSecret string,
	identitySecret string,
	tokenTTL time.Duration,
) *AuthUseCase {
	return &AuthUseCase{
		profiles:       profiles,
		userRepo:       userRepo,
		sessionRepo:    sessionRepo,
		breaker:        breaker,
		logger:         logger,
		jwtSecret:      jwtSecret,
		identitySecret: identitySecret,
		tokenTTL:       tokenTTL,
		bcryptCost:     bcrypt.DefaultCost,
	}
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// ClientInfo describes the device a session was issued to.
type ClientInfo struct {
	DeviceInfo string
	IPAddress  string
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name" binding:"omitempty,max=100"`
	Phone    string `json:"phone" binding:"omitempty,max=32"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates an email/password account with a default profile.
func (uc *AuthUseCase) Register(ctx context.Context, req *RegisterRequest, client ClientInfo) (*AuthResponse, error) {
	if uc.breaker.Compromised() {
		return nil, domain.ErrBackendUnavailable
	}

	if _, err := uc.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, domain.ErrUserAlreadyExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		uc.breaker.Observe(err)
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), uc.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashed := string(hash)

	user := profile.NewDefaultUser(domain.AuthIdentity{
		UID:         uuid.NewString(),
		Email:       req.Email,
		DisplayName: strings.TrimSpace(req.Name),
		PhoneNumber: req.Phone,
	})
	user.PasswordHash = &hashed

	if err := uc.userRepo.Create(ctx, user); err != nil {
		uc.breaker.Observe(err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return uc.issue(ctx, user, client)
}

// Login checks email and password. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (uc *AuthUseCase) Login(ctx context.Context, req *LoginRequest, client ClientInfo) (*AuthResponse, error) {
	if uc.breaker.Compromised() {
		return nil, domain.ErrBackendUnavailable
	}

	user, err := uc.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		uc.breaker.Observe(err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.PasswordHash == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return uc.issue(ctx, user, client)
}

// AuthenticateOAuth exchanges an identity token minted by the external
// identity provider for a session.
func (uc *AuthUseCase) AuthenticateOAuth(ctx context.Context, identityToken string, client ClientInfo) (*AuthResponse, error) {
	identity, err := uc.verifyIdentityToken(identityToken)
	if err != nil {
		return nil, err
	}

	user, err := uc.profiles.GetOrCreateProfile(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to sync profile: %w", err)
	}

	return uc.issue(ctx, user, client)
}

func (uc *AuthUseCase) verifyIdentityToken(tokenString string) (domain.AuthIdentity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(uc.identitySecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return domain.AuthIdentity{}, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.AuthIdentity{}, domain.ErrInvalidToken
	}

	claim := func(name string) string {
		v, _ := claims[name].(string)
		return v
	}
	identity := domain.AuthIdentity{
		UID:         claim("uid"),
		Email:       claim("email"),
		DisplayName: claim("name"),
		PhotoURL:    claim("picture"),
		PhoneNumber: claim("phone_number"),
	}
	if identity.UID == "" {
		identity.UID = claim("sub")
	}
	if identity.UID == "" {
		return domain.AuthIdentity{}, domain.ErrInvalidToken
	}
	return identity, nil
}

// issue signs an access token and records its session.
func (uc *AuthUseCase) issue(ctx context.Context, user *domain.User, client ClientInfo) (*AuthResponse, error) {
	now := time.Now()
	expiresAt := now.Add(uc.tokenTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
		"jti":     uuid.NewString(),
	})
	tokenString, err := token.SignedString([]byte(uc.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	session := &domain.Session{
		UserID:     user.ID,
		TokenHash:  hashToken(tokenString),
		DeviceInfo: client.DeviceInfo,
		IPAddress:  client.IPAddress,
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
	}
	if !uc.breaker.Compromised() {
		if err := uc.sessionRepo.Create(ctx, session); err != nil {
			if !uc.breaker.Observe(err) {
				return nil, fmt.Errorf("failed to create session: %w", err)
			}
			uc.logger.Warn("session not persisted, backend compromised", zap.String("user_id", user.ID))
		}
	}

	return &AuthResponse{Token: tokenString, ExpiresAt: expiresAt, User: user}, nil
}

// VerifyToken verifies JWT token and returns user ID. While the backend is
// compromised the signature alone is trusted.
func (uc *AuthUseCase) VerifyToken(ctx context.Context, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(uc.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", domain.ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", domain.ErrInvalidToken
	}

	if uc.breaker.Compromised() {
		return userID, nil
	}

	session, err := uc.sessionRepo.GetByToken(ctx, hashToken(tokenString))
	if err != nil {
		if uc.breaker.Observe(err) {
			return userID, nil
		}
		return "", domain.ErrSessionNotFound
	}
	if session.IsExpired() || session.UserID != userID {
		return "", domain.ErrInvalidToken
	}

	return userID, nil
}

// Logout deletes user session
func (uc *AuthUseCase) Logout(ctx context.Context, tokenString string) error {
	if uc.breaker.Compromised() {
		return nil
	}
	err := uc.sessionRepo.DeleteByToken(ctx, hashToken(tokenString))
	if uc.breaker.Observe(err) {
		return nil
	}
	return err
}

// hashToken creates SHA256 hash of token for storage
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
