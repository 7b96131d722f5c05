package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ropacal-telemetry/internal/broadcast"
	"ropacal-telemetry/internal/config"
	"ropacal-telemetry/internal/database"
	"ropacal-telemetry/internal/engine"
	"ropacal-telemetry/internal/handlers"
	"ropacal-telemetry/internal/influx"
	"ropacal-telemetry/internal/models"
	"ropacal-telemetry/internal/mqtt"
	"ropacal-telemetry/internal/routes"
	"ropacal-telemetry/internal/seed"
	"ropacal-telemetry/internal/services"
	"ropacal-telemetry/internal/session"
	"ropacal-telemetry/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 ROPACAL TELEMETRY SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	log.Println("📂 Loading environment variables...")
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Session store. Without a database the session lives in memory and
	// does not survive a restart.
	var kv session.KVStore
	var history engine.HistoryRecorder
	var db *sqlx.DB
	if cfg.SessionDBPath != "" {
		var err error
		db, err = openSessionDB(cfg.SessionDBPath)
		if err != nil {
			log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			log.Println("⚠️  Session database unavailable, keeping session in memory")
			log.Printf("   Error: %v", err)
			log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		} else {
			defer db.Close()
			kv = database.NewKVStore(db)
			history = database.NewHistoryStore(db)
		}
	}

	catalog := routes.DefaultCatalog()
	if cfg.RoutesFile != "" {
		loaded, err := routes.LoadCatalog(cfg.RoutesFile)
		if err != nil {
			log.Printf("⚠️  Failed to load routes from %s: %v (using built-in routes)", cfg.RoutesFile, err)
		} else {
			catalog = loaded
		}
	}
	log.Printf("✅ Route catalog loaded (%d routes)", catalog.Len())

	e, err := engine.New(engine.Options{
		KV:                kv,
		Catalog:           catalog,
		History:           history,
		UpdateInterval:    cfg.UpdateInterval,
		ResetPollInterval: cfg.ResetPollInterval,
	})
	if err != nil {
		log.Fatalf("❌ FATAL ERROR: engine: %v", err)
	}

	log.Println("🌱 Seeding demo bins...")
	if n, err := seed.SeedBins(e.Store, cfg.SeedOwnerID, cfg.SeedBins); err != nil {
		log.Printf("⚠️  Seeding failed: %v", err)
	} else {
		log.Printf("✅ Seeded %d bins for %s", n, cfg.SeedOwnerID)
	}

	// WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)
	e.Bus.Subscribe("websocket", wsHub)
	log.Println("✅ WebSocket hub started")

	// MQTT: publish snapshots, accept collection events
	if cfg.MQTTBroker != "" {
		client, err := mqtt.Connect(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTUser, cfg.MQTTPass)
		if err != nil {
			log.Printf("⚠️  MQTT disabled: %v", err)
		} else {
			defer client.Disconnect(250)
			publisher := subscribeAsync(e, "mqtt", mqtt.NewPublisher(client, func() models.TelemetryStats {
				return e.Store.StatsFor("")
			}))
			defer publisher.Close()
			err := mqtt.SubscribeCollections(client, func(ev models.CollectedBinEvent) error {
				e.Window()
				_, err := e.Collections.Append(ev)
				return err
			})
			if err != nil {
				log.Printf("⚠️  MQTT collections subscription failed: %v", err)
			}
		}
	}

	// InfluxDB
	if writer, err := influx.NewWriterIfConfigured(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket); err == nil {
		defer writer.Close()
		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := writer.Health(healthCtx); err != nil {
			log.Printf("⚠️  InfluxDB health check failed: %v (writes will be retried per tick)", err)
		}
		cancel()
		influxSink := subscribeAsync(e, "influx", writer)
		defer influxSink.Close()
		log.Printf("✅ InfluxDB writer enabled (%s/%s)", cfg.InfluxOrg, cfg.InfluxBucket)
	} else if !errors.Is(err, influx.ErrNotConfigured) {
		log.Printf("⚠️  InfluxDB disabled: %v", err)
	}

	// Firebase Cloud Messaging. Base64 credentials take precedence over the file.
	if len(cfg.FCMAlertTokens) > 0 {
		var fcmService *services.FCMService
		var err error
		if cfg.FirebaseCredentialsBase64 != "" {
			fcmService, err = services.NewFCMServiceFromBase64(cfg.FirebaseCredentialsBase64)
		} else {
			credentialsFile := cfg.FirebaseCredentialsFile
			if credentialsFile == "" {
				credentialsFile = "./firebase-service-account.json"
			}
			fcmService, err = services.NewFCMService(credentialsFile)
		}
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM: %v (overflow alerts disabled)", err)
		} else {
			alertSink := subscribeAsync(e, "fcm", services.NewAlertNotifier(fcmService, cfg.FCMAlertTokens))
			defer alertSink.Close()
			log.Printf("✅ Firebase Cloud Messaging initialized (%d tokens)", len(cfg.FCMAlertTokens))
		}
	}

	deps := handlers.Deps{DB: db, Hub: wsHub}
	if cfg.GoogleMapsAPIKey != "" {
		geocoder, err := services.NewGeocodingService(cfg.GoogleMapsAPIKey, "")
		if err != nil {
			log.Printf("⚠️  Geocoding disabled: %v", err)
		} else {
			deps.Geocoder = geocoder
		}
	}

	if err := e.Start(ctx); err != nil {
		log.Fatalf("❌ FATAL ERROR: engine start: %v", err)
	}
	defer e.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(e, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", cfg.Port)
	log.Println("🔌 Ready to accept requests!")
	log.Println("═══════════════════════════════════════════════════════════════════")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			log.Println("❌ FATAL ERROR: Server failed to start")
			log.Printf("   Error: %v", err)
			log.Printf("   Port: %s", cfg.Port)
			log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			return
		}
	case <-ctx.Done():
		log.Println("🛑 Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("⚠️  HTTP shutdown: %v", err)
		}
	}
}

// subscribeAsync registers a network sink behind its own queue so
// broker, database or push latency never reaches the store.
func subscribeAsync(e *engine.Engine, name string, sink broadcast.Subscriber) *broadcast.Async {
	async := broadcast.NewAsync(name, sink, broadcast.DefaultQueueSize)
	e.Bus.Subscribe(name, async)
	return async
}

func openSessionDB(path string) (*sqlx.DB, error) {
	log.Printf("🔌 Opening session database %s...", path)
	db, err := database.Connect(path)
	if err != nil {
		return nil, err
	}
	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	log.Println("✅ Database migrations completed")
	return db, nil
}
