package main

import (
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/minaret-app/minaret/internal/db"
	"github.com/minaret-app/minaret/internal/directory"
	"github.com/minaret-app/minaret/internal/engine"
	"github.com/minaret-app/minaret/internal/geocode"
	"github.com/minaret-app/minaret/internal/http/api"
	"github.com/minaret-app/minaret/internal/http/api/endpoints"
	"github.com/minaret-app/minaret/internal/prayer"
	redisclient "github.com/minaret-app/minaret/internal/redis"
)

// RegisterRoutes sets up all application routes
func RegisterRoutes(
	r *gin.Engine,
	env Environment,
	store db.Store,
	dir *directory.Directory,
	manager *engine.Manager,
	broker mqtt.Client,
	prayerProvider prayer.Provider,
	geocoder *geocode.Client,
	prefs *redisclient.PreferenceStore,
	streaks *redisclient.StreakCounter,
) {
	// CORS
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
			"Accept",
		},
		AllowCredentials: false,
	}))

	api.MountGroup(r, api.GroupConfig{
		Prefix:    "/api",
		Auth:      true,
		SecretKey: env.SecretKey,
	},
		endpoints.TrackingModule(manager, broker),
		endpoints.MosquesModule(dir),
		endpoints.PrayersModule(prayerProvider, prayer.CalculationMethod(env.PrayerMethod)),
		endpoints.GeocodeModule(geocoder),
		endpoints.PreferencesModule(prefs, streaks),
		endpoints.VisitsModule(store),
	)

	// unauthenticated liveness probe
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
}
