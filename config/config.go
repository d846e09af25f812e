package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort  string
	Environment string
	Debug       bool

	DataDir string

	// Movie manager (Radarr-compatible)
	RadarrURL    string
	RadarrAPIKey string

	// Series manager (Sonarr-compatible)
	SonarrURL    string
	SonarrAPIKey string

	// Library index (Tautulli-compatible)
	TautulliURL    string
	TautulliAPIKey string

	// Metadata catalog
	TMDBBearerToken string

	// Group chat notifications
	BotToken            string
	GroupChatID         int64
	BotTopicID          int
	SilentNotifications bool

	// Reconciliation timing
	SweepIntervalMinutes  int
	RecentIntervalMinutes int
}

func Load() *Config {
	// Best-effort: a missing .env just means everything comes from the
	// real environment (the Docker case).
	_ = godotenv.Load()

	return &Config{
		ServerPort:  getEnv("PORT", "5005"),
		Environment: getEnv("ENV", "development"),
		Debug:       getEnv("DEBUG", "false") == "true",

		DataDir: getEnv("DATA_DIR", "data"),

		RadarrURL:    getEnv("RADARR_URL", ""),
		RadarrAPIKey: getEnv("RADARR_API_KEY", ""),

		SonarrURL:    getEnv("SONARR_URL", ""),
		SonarrAPIKey: getEnv("SONARR_API_KEY", ""),

		TautulliURL:    getEnv("TAUTULLI_URL", ""),
		TautulliAPIKey: getEnv("TAUTULLI_API_KEY", ""),

		TMDBBearerToken: getEnv("TMDB_API_READ_TOKEN", ""),

		BotToken:            getEnv("BOT_TOKEN", ""),
		GroupChatID:         getEnvInt64("GROUP_CHAT_ID", 0),
		BotTopicID:          getEnvInt("BOT_TOPIC_ID", 0),
		SilentNotifications: getEnv("SILENT_NOTIFICATIONS", "true") == "true",

		SweepIntervalMinutes:  getEnvInt("SWEEP_INTERVAL_MINUTES", 15),
		RecentIntervalMinutes: getEnvInt("RECENT_INTERVAL_MINUTES", 30),
	}
}

// Validate logs what is missing and reports whether the process can run at
// all. The managers and the messenger are optional at startup (the media
// server may simply not be configured yet); the data directory is not.
func (c *Config) Validate() bool {
	ok := true
	if c.DataDir == "" {
		slog.Error("DATA_DIR must not be empty")
		ok = false
	}
	if c.RadarrURL == "" && c.SonarrURL == "" {
		slog.Warn("No movie or series manager configured, requests cannot be reconciled")
	}
	if c.TautulliURL == "" || c.TautulliAPIKey == "" {
		slog.Warn("Tautulli not configured, recently-added notifications disabled")
	}
	if c.BotToken == "" || c.GroupChatID == 0 {
		slog.Warn("Telegram not configured, notifications will be logged only")
	}
	return ok
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}
