package config

import (
	"strconv"
	"time"
)

type SessionConfig interface {
	GetSessionStore() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetSessionSecret() []byte
	GetSessionMaxAge() time.Duration
}

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type Session struct{}

var _ SessionConfig = Session{}

// GetSessionStore returns where session tokens are kept: "memory" or "redis".
func (Session) GetSessionStore() string {
	if GetEnv("SESSION_STORE", SessionStoreMemory) == SessionStoreRedis {
		return SessionStoreRedis
	}
	return SessionStoreMemory
}

func (Session) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Session) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Session) GetRedisDB() int {
	db, err := strconv.Atoi(GetEnv("REDIS_DB", "0"))
	if err != nil {
		return 0
	}
	return db
}

// GetSessionSecret is the cookie signing key. The default is only fit for DEV.
func (Session) GetSessionSecret() []byte {
	return []byte(GetEnv("SESSION_SECRET", "dev-session-secret-change-me-32b"))
}

func (Session) GetSessionMaxAge() time.Duration {
	return GetDuration("SESSION_MAX_AGE", 7*24*time.Hour)
}
