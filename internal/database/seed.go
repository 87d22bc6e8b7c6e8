package database

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// Seed populates the database with initial development data.
// It creates a demo site if no sites exist so the API has something to
// serve immediately after a fresh start.
func Seed(db *sql.DB) error {
	// Check if any sites exist already.
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM sites").Scan(&count); err != nil {
		return fmt.Errorf("seed check sites: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	_, err := db.Exec(`
		INSERT INTO sites (owner_id, name, description, slug, content_html, content_css, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		"00000000-0000-0000-0000-000000000001",
		"Demo Site",
		"A starter site created on first run.",
		"demo-site",
		"<h1>Welcome to Demo Site</h1>\n<p>Edit this site or generate a new one.</p>",
		"body { font-family: Inter, sans-serif; margin: 2rem; }",
		"draft",
	)
	if err != nil {
		return fmt.Errorf("seed insert demo site: %w", err)
	}

	slog.Info("database seeded with demo site", "slug", "demo-site")

	return nil
}
