package fakebackend

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-space-rental/apimodel"
	"github.com/jrsteele09/go-space-rental/internal/errors"
)

// accessClaims is what the auth middleware extracts from a verified token.
type accessClaims struct {
	userID   int64
	tenantID int64
	gen      int64
}

// issue creates a new access/refresh pair for the user acting in tenantID.
func (b *Backend) issue(userID, tenantID int64) (apimodel.TokenResponse, error) {
	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"sub":       strconv.FormatInt(userID, 10),
		"tenant_id": tenantID,            // Organization the user is acting in
		"type":      "access",
		"gen":       b.generation.Load(), // Bumped by ExpireAccessTokens
		"iat":       now.Unix(),
		"exp":       now.Add(b.config.GetAccessTokenExpiry()).Unix(),
		"jti":       uuid.New().String(), // Unique token ID
	}
	access, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(b.config.GetJWTSecret())
	if err != nil {
		return apimodel.TokenResponse{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	tokenBytes := make([]byte, b.config.GetRefreshTokenLength())
	if _, err := rand.Read(tokenBytes); err != nil {
		return apimodel.TokenResponse{}, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	refresh := hex.EncodeToString(tokenBytes)
	b.store.saveRefreshToken(refresh, userID, now.Add(b.config.GetRefreshTokenExpiry()))

	return apimodel.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}, nil
}

// verify parses and validates an access token. Tokens from an earlier
// generation are reported as expired.
func (b *Backend) verify(raw string) (accessClaims, error) {
	token, err := jwtlib.Parse(raw, func(*jwtlib.Token) (any, error) {
		return b.config.GetJWTSecret(), nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithTimeFunc(NowTimeFunc))
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return accessClaims{}, errors.ErrTokenExpired
		}
		return accessClaims{}, errors.Wrapf(errors.ErrInvalidToken, "%v", err)
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok || claims["type"] != "access" {
		return accessClaims{}, errors.ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return accessClaims{}, errors.ErrInvalidToken
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return accessClaims{}, errors.ErrInvalidToken
	}
	tenantID, _ := claims["tenant_id"].(float64)
	gen, _ := claims["gen"].(float64)

	if int64(gen) != b.generation.Load() {
		return accessClaims{}, errors.ErrTokenExpired
	}
	return accessClaims{userID: userID, tenantID: int64(tenantID), gen: int64(gen)}, nil
}
