package main

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Environment struct {
	Environment    string
	ServerAddress  string
	DatabaseURL    string
	MigrationsPath string

	RedisAddress  string
	RedisUsername string
	RedisPassword string

	MQTTBrokerURL string

	PrayerAPIBaseURL string
	Latitude         float64
	Longitude        float64
	CalcMethod       int

	TTSEndpoint string
	TTSVoice    string

	SoundDir        string
	UseSpaces       bool
	SpacesEndpoint  string
	SpacesRegion    string
	SpacesBucket    string
	SpacesAccessKey string
	SpacesSecretKey string

	TickInterval time.Duration
	GraceWindow  time.Duration
}

// LoadEnvironment reads and validates env vars. A .env file next to the
// binary is honored when present.
func LoadEnvironment() Environment {
	_ = godotenv.Load()

	env := Environment{
		Environment:    os.Getenv("APP_ENV"),
		ServerAddress:  envDefault("SERVER_ADDRESS", ":8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MigrationsPath: envDefault("MIGRATIONS_PATH", "./migrations"),

		RedisAddress:  os.Getenv("REDIS_ADDRESS"),
		RedisUsername: os.Getenv("REDIS_USERNAME"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		MQTTBrokerURL: os.Getenv("MQTT_BROKER_URL"),

		PrayerAPIBaseURL: envDefault("PRAYER_API_BASE_URL", "https://api.aladhan.com"),
		Latitude:         envFloat("LATITUDE"),
		Longitude:        envFloat("LONGITUDE"),
		CalcMethod:       envInt("CALC_METHOD", 3),

		TTSEndpoint: os.Getenv("TTS_ENDPOINT"),
		TTSVoice:    envDefault("TTS_VOICE", "default"),

		SoundDir:        envDefault("SOUND_DIR", "./sounds"),
		UseSpaces:       os.Getenv("USE_SPACES") == "true",
		SpacesEndpoint:  os.Getenv("SPACES_ENDPOINT"),
		SpacesRegion:    os.Getenv("SPACES_REGION"),
		SpacesBucket:    os.Getenv("SPACES_BUCKET"),
		SpacesAccessKey: os.Getenv("SPACES_ACCESS_KEY"),
		SpacesSecretKey: os.Getenv("SPACES_SECRET_KEY"),

		TickInterval: envDuration("TICK_INTERVAL", time.Second),
		GraceWindow:  envDuration("GRACE_WINDOW", 30*time.Second),
	}

	if env.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}
	if os.Getenv("LATITUDE") == "" || os.Getenv("LONGITUDE") == "" {
		log.Fatal().Msg("LATITUDE and LONGITUDE are required")
	}

	return env
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Fatal().Str("key", key).Str("value", raw).Msg("invalid float in environment")
	}
	return v
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Fatal().Str("key", key).Str("value", raw).Msg("invalid integer in environment")
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatal().Str("key", key).Str("value", raw).Msg("invalid duration in environment")
	}
	return v
}
