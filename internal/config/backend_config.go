package config

import (
	"fmt"
	"strings"
	"time"
)

// BackendConfig configures the stub REST backend used for local development.
type BackendConfig interface {
	GetBackendPort() string
	GetJWTSecret() []byte
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRefreshTokenLength() int
}

type Backend struct{}

var _ BackendConfig = Backend{}

func (Backend) GetBackendPort() string {
	port := GetEnv("BACKEND_PORT", "8000")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (Backend) GetJWTSecret() []byte {
	return []byte(GetEnv("JWT_SECRET", "dev-jwt-secret"))
}

func (Backend) GetAccessTokenExpiry() time.Duration {
	return GetDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute)
}

func (Backend) GetRefreshTokenExpiry() time.Duration {
	return GetDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour)
}

func (Backend) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}
