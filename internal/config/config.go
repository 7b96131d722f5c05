package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port              string
	UpdateInterval    time.Duration
	ResetPollInterval time.Duration
	// Session store (SQLite file); empty keeps the session in memory
	SessionDBPath string
	// Route catalog YAML; empty uses the built-in routes
	RoutesFile string
	// Demo data
	SeedBins    int
	SeedOwnerID string
	// MQTT sink
	MQTTBroker   string
	MQTTClientID string
	MQTTUser     string
	MQTTPass     string
	// InfluxDB sink
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
	// Firebase overflow alerts
	FirebaseCredentialsBase64 string
	FirebaseCredentialsFile   string
	FCMAlertTokens            []string
	// Geocoding for bins registered without coordinates
	GoogleMapsAPIKey string
}

func Load() Config {
	return Config{
		Port:              getEnv("PORT", "8080"),
		UpdateInterval:    getEnvDuration("UPDATE_INTERVAL", 5*time.Second),
		ResetPollInterval: getEnvDuration("RESET_POLL_INTERVAL", time.Minute),
		SessionDBPath:     getEnv("SESSION_DB_PATH", "./data/session.db"),
		RoutesFile:        getEnv("ROUTES_FILE", ""),
		SeedBins:          getEnvInt("SEED_BINS", 12),
		SeedOwnerID:       getEnv("SEED_OWNER_ID", "resident-1"),
		MQTTBroker:        getEnv("MQTT_BROKER", ""),
		MQTTClientID:      getEnv("MQTT_CLIENT_ID", "ropacal-telemetry"),
		MQTTUser:          getEnv("MQTT_USER", ""),
		MQTTPass:          getEnv("MQTT_PASS", ""),
		InfluxURL:         getEnv("INFLUX_URL", ""),
		InfluxToken:       getEnv("INFLUX_TOKEN", ""),
		InfluxOrg:         getEnv("INFLUX_ORG", "ropacal"),
		InfluxBucket:      getEnv("INFLUX_BUCKET", "bin_telemetry"),

		FirebaseCredentialsBase64: getEnv("FIREBASE_CREDENTIALS_BASE64", ""),
		FirebaseCredentialsFile:   getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		FCMAlertTokens:            getEnvList("FCM_ALERT_TOKENS"),
		GoogleMapsAPIKey:          getEnv("GOOGLE_MAPS_API_KEY", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping blanks
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
