package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"ropacal-telemetry/internal/database"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dbPath := os.Getenv("SESSION_DB_PATH")
	if dbPath == "" {
		dbPath = "./data/session.db"
	}
	var historyLimit int
	pflag.StringVar(&dbPath, "db", dbPath, "session database file")
	pflag.IntVar(&historyLimit, "history", 10, "number of recent sessions to show")
	pflag.Parse()

	db, err := database.Connect(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migration completed successfully!")

	entries, err := database.NewKVStore(db).Entries()
	if err != nil {
		log.Fatalf("Failed to read session state: %v", err)
	}
	history, err := database.RecentSessionHistory(db, historyLimit)
	if err != nil {
		log.Fatalf("Failed to read session history: %v", err)
	}

	fmt.Println("\n============================================================")
	fmt.Println("SESSION STATE")
	fmt.Println("============================================================")
	if len(entries) == 0 {
		fmt.Println("(no active session)")
	}
	for _, entry := range entries {
		fmt.Printf("%-20s %-26s updated %s\n", entry.Key, entry.Value, formatMillis(entry.UpdatedAt))
	}

	fmt.Println("\n============================================================")
	fmt.Println("RECENT SESSIONS")
	fmt.Println("============================================================")
	if len(history) == 0 {
		fmt.Println("(none recorded)")
	}
	for _, h := range history {
		fmt.Printf("%s  started %s  ended %s  bins %-4d weight %.2f kg\n",
			h.SessionDate, formatMillis(h.StartTime), formatMillis(h.EndedAt), h.BinsCollected, h.TotalWeight)
	}
	fmt.Println("============================================================")
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}
