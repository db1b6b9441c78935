package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"match-collector/internal/constants"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
)

type Config struct {
	RiotAPIKey string
	Region     string
	// BaseURL overrides the regional host, mostly for tests and proxies.
	BaseURL string

	DBPath       string
	StoreBackend string
	DataDir      string
	LogLevel     string
	SeedFile     string
	StatusAddr   string

	PatchCutoff  time.Time
	RankedQueues []int
	GameModes    []string

	RateLimitPerSecond float64
	RateLimitBurst     int

	TransientMaxRetries  uint64
	ContinueOnExhaustion bool
	MaxMatches           int
}

// Load reads configuration from the environment, after loading a .env file
// when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return fromEnv(os.Getenv)
}

func fromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		RiotAPIKey:   get("RIOT_API_KEY", ""),
		Region:       get("RIOT_REGION", "na1"),
		BaseURL:      get("RIOT_BASE_URL", ""),
		DBPath:       get("DB_PATH", "collector.db"),
		StoreBackend: strings.ToLower(get("STORE_BACKEND", StoreSQLite)),
		DataDir:      get("DATA_DIR", "data"),
		LogLevel:     get("LOG_LEVEL", "info"),
		SeedFile:     get("SEED_FILE", "seeds.yaml"),
		StatusAddr:   get("STATUS_ADDR", ""),
	}

	if cfg.RiotAPIKey == "" {
		return nil, fmt.Errorf("RIOT_API_KEY is required")
	}
	if cfg.StoreBackend != StoreSQLite && cfg.StoreBackend != StoreFile {
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreSQLite, StoreFile, cfg.StoreBackend)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("https://%s.api.riotgames.com", cfg.Region)
	}

	var err error
	if cfg.PatchCutoff, err = time.Parse(time.DateOnly, get("PATCH_CUTOFF", constants.DefaultPatchCutoff)); err != nil {
		return nil, fmt.Errorf("invalid PATCH_CUTOFF: %w", err)
	}
	if cfg.RankedQueues, err = parseQueues(get("RANKED_QUEUES", constants.DefaultRankedQueues)); err != nil {
		return nil, fmt.Errorf("invalid RANKED_QUEUES: %w", err)
	}
	if cfg.GameModes = parseModes(get("GAME_MODES", constants.DefaultGameModes)); len(cfg.GameModes) == 0 {
		return nil, fmt.Errorf("invalid GAME_MODES: %q", getenv("GAME_MODES"))
	}
	if cfg.RateLimitPerSecond, err = strconv.ParseFloat(get("RATE_LIMIT_PER_SECOND", strconv.FormatFloat(constants.DefaultRateLimitPerSecond, 'f', -1, 64)), 64); err != nil || cfg.RateLimitPerSecond <= 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_SECOND: %q", getenv("RATE_LIMIT_PER_SECOND"))
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(get("RATE_LIMIT_BURST", strconv.Itoa(constants.DefaultRateLimitBurst))); err != nil || cfg.RateLimitBurst < 1 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %q", getenv("RATE_LIMIT_BURST"))
	}
	if cfg.TransientMaxRetries, err = strconv.ParseUint(get("TRANSIENT_MAX_RETRIES", strconv.Itoa(constants.DefaultTransientRetries)), 10, 64); err != nil {
		return nil, fmt.Errorf("invalid TRANSIENT_MAX_RETRIES: %w", err)
	}
	if cfg.ContinueOnExhaustion, err = strconv.ParseBool(get("CONTINUE_ON_EXHAUSTION", "false")); err != nil {
		return nil, fmt.Errorf("invalid CONTINUE_ON_EXHAUSTION: %w", err)
	}
	if cfg.MaxMatches, err = strconv.Atoi(get("MAX_MATCHES", "0")); err != nil || cfg.MaxMatches < 0 {
		return nil, fmt.Errorf("invalid MAX_MATCHES: %q", getenv("MAX_MATCHES"))
	}

	return cfg, nil
}

func parseQueues(s string) ([]int, error) {
	var queues []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		q, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		queues = append(queues, q)
	}
	if len(queues) == 0 {
		return nil, fmt.Errorf("no queues in %q", s)
	}
	return queues, nil
}

func parseModes(s string) []string {
	var modes []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			modes = append(modes, part)
		}
	}
	return modes
}

var Module = fx.Provide(Load)
