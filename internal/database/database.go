package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// Connect opens (creating if needed) the local session database at path.
func Connect(path string) (*sqlx.DB, error) {
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Println("🔌 SESSION STORE CONNECTION ATTEMPT")
	log.Printf("   📍 Path: %s", path)
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create session store directory: %w", err)
			}
		}
	}

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		log.Println("❌ SESSION STORE CONNECTION FAILED")
		log.Printf("   Error message: %v", err)
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	// SQLite allows a single writer; an in-memory database also lives
	// on exactly one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping session store: %w", err)
	}

	log.Println("✅ SESSION STORE CONNECTION SUCCESSFUL")
	return db, nil
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS session_kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,

		// One row per completed session, written when a window is replaced
		`CREATE TABLE IF NOT EXISTS session_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_date TEXT NOT NULL,
			start_time INTEGER NOT NULL,
			ended_at INTEGER NOT NULL,
			bins_collected INTEGER NOT NULL DEFAULT 0,
			total_weight REAL NOT NULL DEFAULT 0
		)`,

		`CREATE INDEX IF NOT EXISTS idx_session_history_date ON session_history(session_date)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Println("✅ Session store migrations complete")
	return nil
}
