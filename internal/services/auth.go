package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	podrepo "github.com/Synap-core/backend-sub006/internal/data/repos/pod"
	"github.com/Synap-core/backend-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/Synap-core/backend-sub006/internal/pkg/errors"
	"github.com/Synap-core/backend-sub006/internal/platform/logger"
	"github.com/Synap-core/backend-sub006/internal/requestdata"
)

// MintedKey is returned once at creation; the plaintext secret is never
// stored, only its bcrypt hash travels through the event flow.
type MintedKey struct {
	ID        uuid.UUID
	Plaintext string
	Prefix    string
	Hash      string
}

type AuthService interface {
	IssueToken(userID uuid.UUID) (string, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	MintKey() (*MintedKey, error)
	SetContextFromAPIKey(ctx context.Context, plaintext string) (context.Context, error)
}

type JWTClaims struct {
	jwt.RegisteredClaims
}

type authService struct {
	log          *logger.Logger
	keys         podrepo.APIKeyRepo
	jwtSecretKey string
	accessTTL    time.Duration
}

func NewAuthService(baseLog *logger.Logger, keys podrepo.APIKeyRepo, jwtSecretKey string, accessTTL time.Duration) AuthService {
	return &authService{
		log:          baseLog.With("service", "AuthService"),
		keys:         keys,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
	}
}

func (as *authService) IssueToken(userID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", fmt.Errorf("%w: token requires a user id", pkgerrors.ErrValidation)
	}
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token", pkgerrors.ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token subject", pkgerrors.ErrUnauthorized)
	}
	return requestdata.With(ctx, &requestdata.RequestData{
		UserID:   userID,
		AuthKind: requestdata.KindJWT,
	}), nil
}

const keyPrefixLen = 8

// MintKey generates a fresh secret of the form dp_<hex>. The prefix
// (first bytes after the scheme tag) is stored in clear for lookup; the
// rest is only ever compared against the bcrypt hash.
func (as *authService) MintKey() (*MintedKey, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("mint api key: %w", err)
	}
	plaintext := "dp_" + hex.EncodeToString(raw)
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash api key: %w", err)
	}
	return &MintedKey{
		ID:        uuid.New(),
		Plaintext: plaintext,
		Prefix:    plaintext[:len("dp_")+keyPrefixLen],
		Hash:      string(hash),
	}, nil
}

func (as *authService) SetContextFromAPIKey(ctx context.Context, plaintext string) (context.Context, error) {
	if len(plaintext) < len("dp_")+keyPrefixLen {
		return nil, fmt.Errorf("%w: malformed api key", pkgerrors.ErrUnauthorized)
	}
	prefix := plaintext[:len("dp_")+keyPrefixLen]
	dbc := dbctx.Context{Ctx: ctx}
	candidates, err := as.keys.GetByPrefix(dbc, prefix)
	if err != nil {
		return nil, err
	}
	for _, key := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(plaintext)) == nil {
			if err := as.keys.TouchLastUsed(dbc, key.ID); err != nil {
				as.log.Warn("touch last used failed", "key_id", key.ID, "error", err)
			}
			return requestdata.With(ctx, &requestdata.RequestData{
				UserID:   key.UserID,
				AuthKind: requestdata.KindAPIKey,
				APIKeyID: key.ID,
			}), nil
		}
	}
	return nil, fmt.Errorf("%w: unknown api key", pkgerrors.ErrUnauthorized)
}
