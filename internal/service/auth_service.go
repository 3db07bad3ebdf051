package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/wfh-scheduler/internal/models"
	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
)

// AuthConfig defines how access tokens are verified.
type AuthConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

type profileLookup interface {
	Profile(ctx context.Context, staffID int) (*models.StaffProfile, error)
}

// AuthService reads the acting user from bearer tokens issued by the login service.
type AuthService struct {
	config   AuthConfig
	profiles profileLookup
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthService constructs an AuthService. profiles may be nil when tokens always carry full staff details.
func NewAuthService(config AuthConfig, profiles profileLookup, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TokenTTL <= 0 {
		config.TokenTTL = 8 * time.Hour
	}
	return &AuthService{config: config, profiles: profiles, logger: logger, now: time.Now}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.StaffID <= 0 {
		if id, err := strconv.Atoi(claims.Subject); err == nil {
			claims.StaffID = id
		}
	}
	if claims.StaffID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token has no staff id")
	}
	return claims, nil
}

// IssueToken signs a token for actor. Used by local tooling and tests; production tokens come from the login service.
func (s *AuthService) IssueToken(actor models.ActingUser) (string, time.Time, error) {
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.config.TokenTTL)
	claims := &models.JWTClaims{
		StaffID:    actor.StaffID,
		ManagerID:  actor.ManagerID,
		Department: actor.Department,
		Position:   actor.Position,
		Role:       actor.Role,
		FirstName:  actor.FirstName,
		LastName:   actor.LastName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   strconv.Itoa(actor.StaffID),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ResolveActor builds the acting user from claims, filling staff details the token omits from the directory.
func (s *AuthService) ResolveActor(ctx context.Context, claims *models.JWTClaims) (models.ActingUser, error) {
	if claims == nil {
		return models.ActingUser{}, appErrors.ErrUnauthorized
	}
	actor := claims.Actor()
	if actor.Role == "" {
		actor.Role = models.RoleStaff
	}
	if actorComplete(actor) || s.profiles == nil {
		return actor, nil
	}

	profile, err := s.profiles.Profile(ctx, actor.StaffID)
	if err != nil {
		s.logger.Warn("resolve acting user profile failed", zap.Int("staff_id", actor.StaffID), zap.Error(err))
		return actor, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, appErrors.ErrUpstream.Message)
	}
	if actor.Department == "" {
		actor.Department = profile.Department
	}
	if actor.Position == "" {
		actor.Position = profile.Position
	}
	if actor.ManagerID == 0 && profile.ReportingManager != nil {
		actor.ManagerID = *profile.ReportingManager
	}
	if actor.FirstName == "" && actor.LastName == "" {
		actor.FirstName, actor.LastName = profile.FirstName, profile.LastName
	}
	return actor, nil
}

func actorComplete(actor models.ActingUser) bool {
	return actor.ManagerID > 0 && actor.Department != "" && actor.Position != "" && actor.FirstName != ""
}
