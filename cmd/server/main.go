package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/minaret-app/minaret/internal/db"
	"github.com/minaret-app/minaret/internal/directory"
	"github.com/minaret-app/minaret/internal/engine"
	"github.com/minaret-app/minaret/internal/geocode"
	"github.com/minaret-app/minaret/internal/notify"
	"github.com/minaret-app/minaret/internal/position"
	"github.com/minaret-app/minaret/internal/prayer"
	redisclient "github.com/minaret-app/minaret/internal/redis"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	env := LoadEnvironment()
	if env.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// initialize PostgreSQL
	if err := db.Init(env.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("db init")
	}
	if err := db.RunMigrations(env.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}
	store := db.NewStore()

	// redis backs preferences, streaks and the prayer day cache
	redisclient.InitRedis(env.RedisAddress, env.RedisUsername, env.RedisPassword)
	prefs := redisclient.NewPreferenceStore(redisclient.Rdb)
	streaks := redisclient.NewStreakCounter(redisclient.Rdb)

	// MQTT carries the native device position streams
	broker, err := position.NewBrokerClient(env.MQTTBrokerURL, "minaret-server")
	if err != nil {
		log.Fatal().Err(err).Msg("mqtt connect")
	}

	// RabbitMQ carries detection events to the push worker
	amqpConn, err := amqp.Dial(env.AMQPURL)
	if err != nil {
		log.Fatal().Err(err).Msg("amqp connect")
	}
	publisher, err := notify.NewAMQPPublisher(amqpConn)
	if err != nil {
		log.Fatal().Err(err).Msg("amqp publisher")
	}

	dir := directory.New(store)
	refreshCtx, cancelRefresh := context.WithCancel(context.Background())
	defer cancelRefresh()
	go dir.RunRefreshLoop(refreshCtx, time.Duration(env.DirectoryRefreshSeconds)*time.Second)

	dispatcher := notify.NewDispatcher(store, publisher, prefs, streaks)
	manager := engine.NewManager(dir, dispatcher, prefs)
	defer manager.StopAll()

	prayerProvider := prayer.NewCachedProvider(prayer.NewClient(env.PrayerAPIBaseURL), redisclient.Rdb)
	geocoder := geocode.NewClient(env.GeocodeBaseURL, env.GeocodeUserAgent)

	if env.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	RegisterRoutes(r, env, store, dir, manager, broker, prayerProvider, geocoder, prefs, streaks)

	log.Info().Str("address", env.ServerAddress).Msg("listening")
	if err := r.Run(env.ServerAddress); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
