package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	portEnvVar        = "PORT"
	appNameVar        = "APP_NAME"
	targetEnvVar      = "TARGET"
	apiURLVar         = "API_URL"
	apiInternalURLVar = "API_INTERNAL_URL"
	apiTimeoutVar     = "API_TIMEOUT"

	defaultAPIOrigin = "http://localhost:8000"
	testAPIBaseURL   = "http://localhost:3000/api"
	apiPathPrefix    = "/api"
)

// Target is the build target the frontend runs as. The API origin fallback
// differs per target.
type Target string

const (
	TargetBrowser Target = "browser"
	TargetServer  Target = "server"
	TargetTest    Target = "test"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}
var _ APIConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Space Rental")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetTarget returns TARGET, forced to "test" when ENV=TEST.
func (e EnvVars) GetTarget() Target {
	if strings.EqualFold(e.GetEnv(), "TEST") {
		return TargetTest
	}
	switch Target(strings.ToLower(GetEnv(targetEnvVar, string(TargetServer)))) {
	case TargetBrowser:
		return TargetBrowser
	case TargetTest:
		return TargetTest
	default:
		return TargetServer
	}
}

// GetAPIBaseURL returns the backend base URL including the /api prefix.
// Test target always talks to http://localhost:3000/api; the server target
// prefers API_INTERNAL_URL over API_URL.
func (e EnvVars) GetAPIBaseURL() string {
	target := e.GetTarget()
	if target == TargetTest {
		return testAPIBaseURL
	}

	origin := os.Getenv(apiURLVar)
	if target == TargetServer {
		if internal := os.Getenv(apiInternalURLVar); internal != "" {
			origin = internal
		}
	}
	origin = strings.TrimRight(origin, "/")
	if origin == "" {
		origin = defaultAPIOrigin
	}
	return origin + apiPathPrefix
}

func (EnvVars) GetAPITimeout() time.Duration {
	return GetDuration(apiTimeoutVar, 10*time.Second)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDuration parses a time.Duration env var, falling back on absent or
// malformed values.
func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
