package constants

import "time"

const (
	DefaultRetryAfter       = 10 * time.Second
	TransientBackoffInitial = 1 * time.Second
	TransientBackoffMax     = 30 * time.Second
	DefaultTransientRetries = 5
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
)

const (
	DefaultRateLimitPerSecond = 0.8
	DefaultRateLimitBurst     = 20
	RateLimitWarnWait         = 2 * time.Second
)

const (
	DBMaxOpenConns    = 1
	DBMaxIdleConns    = 1
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// RANKED_SOLO_5x5 and RANKED_FLEX_SR
	DefaultRankedQueues = "420,440"
	DefaultPatchCutoff  = "2017-03-03"
	DefaultGameModes    = "CLASSIC"
)
