package main

import (
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

type Environment struct {
	Environment    string
	ServerAddress  string
	SecretKey      string
	DatabaseURL    string
	MigrationsPath string

	RedisAddress  string
	RedisUsername string
	RedisPassword string

	MQTTBrokerURL string
	AMQPURL       string

	PrayerAPIBaseURL        string
	PrayerMethod            int
	GeocodeBaseURL          string
	GeocodeUserAgent        string
	DirectoryRefreshSeconds int
}

// LoadEnvironment reads and validates env vars
func LoadEnvironment() Environment {
	env := Environment{
		Environment:    os.Getenv("APP_ENV"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		SecretKey:      os.Getenv("JWT_SECRET"),
		ServerAddress:  os.Getenv("SERVER_ADDRESS"),
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),

		RedisAddress:  os.Getenv("REDIS_ADDRESS"),
		RedisUsername: os.Getenv("REDIS_USERNAME"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		MQTTBrokerURL: os.Getenv("MQTT_BROKER_URL"),
		AMQPURL:       os.Getenv("AMQP_URL"),

		PrayerAPIBaseURL: os.Getenv("PRAYER_API_BASE_URL"),
		GeocodeBaseURL:   os.Getenv("GEOCODE_BASE_URL"),
		GeocodeUserAgent: os.Getenv("GEOCODE_USER_AGENT"),
	}

	if env.ServerAddress == "" {
		env.ServerAddress = ":8080"
	}
	if env.MigrationsPath == "" {
		env.MigrationsPath = "./migrations"
	}
	if env.MQTTBrokerURL == "" {
		env.MQTTBrokerURL = "tcp://0.0.0.0:1883"
	}
	if env.PrayerAPIBaseURL == "" {
		env.PrayerAPIBaseURL = "https://api.aladhan.com"
	}
	if env.GeocodeBaseURL == "" {
		env.GeocodeBaseURL = "https://nominatim.openstreetmap.org"
	}
	if env.GeocodeUserAgent == "" {
		env.GeocodeUserAgent = "minaret-server"
	}

	env.PrayerMethod = intEnv("PRAYER_METHOD", 3)
	env.DirectoryRefreshSeconds = intEnv("DIRECTORY_REFRESH_SECONDS", 300)

	// Basic validation
	if env.DatabaseURL == "" || env.SecretKey == "" || env.AMQPURL == "" {
		log.Fatal().Msg("Missing required environment variables")
	}

	return env
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Fatal().Str("key", key).Str("value", raw).Msg("invalid integer environment variable")
	}
	return n
}
