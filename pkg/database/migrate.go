package database

import (
	"database/sql"
	"fmt"
)

// schema for the target animal API. `nom` is the natural key: the pipeline
// identifies records by scientific name, and the API refuses duplicates with
// a conflict.
const schema = `
CREATE TABLE IF NOT EXISTS animaux (
  nom          TEXT PRIMARY KEY,
  nom_commun   TEXT,
  rang         TEXT,
  statut_uicn  TEXT,
  ordre        TEXT,
  famille      TEXT,
  genre        TEXT,
  descriptions TEXT,
  image_url    TEXT,
  created_at   TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_animaux_statut ON animaux (statut_uicn);
CREATE INDEX IF NOT EXISTS idx_animaux_famille ON animaux (famille);
`

// Migrate applies the schema. Safe to run on every startup.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
