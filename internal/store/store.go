// Package store persists per-image annotation lists in a local SQLite
// database. Each image path owns one row set; saving replaces the whole set
// atomically, matching the editor's commit-on-release model.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"boxlabel/internal/annotation"
)

const schema = `
CREATE TABLE IF NOT EXISTS images (
	path       TEXT PRIMARY KEY,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS boxes (
	id         TEXT PRIMARY KEY,
	image_path TEXT NOT NULL REFERENCES images(path) ON DELETE CASCADE,
	class_id   INTEGER NOT NULL,
	x          REAL NOT NULL,
	y          REAL NOT NULL,
	width      REAL NOT NULL,
	height     REAL NOT NULL,
	auto_label INTEGER NOT NULL DEFAULT 0,
	position   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_boxes_image ON boxes(image_path);
`

// DB is a SQLite-backed annotation store.
type DB struct {
	db *sql.DB
}

// Open creates or opens the default database under the user config
// directory (~/.config/boxlabel/annotations.db).
func Open() (*DB, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config directory: %w", err)
	}
	return OpenPath(filepath.Join(cfgDir, "boxlabel", "annotations.db"))
}

// OpenPath creates or opens a database at the given path. Used directly by
// tests and by projects that keep their database next to the image set.
func OpenPath(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (s *DB) Close() error {
	return s.db.Close()
}

// Save replaces the stored annotation list for an image. Box order is
// preserved because it defines z-order for hit testing.
func (s *DB) Save(imagePath string, boxes []annotation.Box) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO images (path, updated_at) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET updated_at = excluded.updated_at`,
		imagePath, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert image %s: %w", imagePath, err)
	}

	if _, err := tx.Exec("DELETE FROM boxes WHERE image_path = ?", imagePath); err != nil {
		return fmt.Errorf("clear boxes for %s: %w", imagePath, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO boxes (id, image_path, class_id, x, y, width, height, auto_label, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, b := range boxes {
		autoLabel := 0
		if b.AutoLabel {
			autoLabel = 1
		}
		if _, err := stmt.Exec(b.ID, imagePath, b.ClassID, b.X, b.Y, b.Width, b.Height, autoLabel, i); err != nil {
			return fmt.Errorf("insert box %s: %w", b.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Load returns the stored annotation list for an image, in z-order. An image
// with no stored annotations yields an empty list, not an error.
func (s *DB) Load(imagePath string) ([]annotation.Box, error) {
	rows, err := s.db.Query(`
		SELECT id, class_id, x, y, width, height, auto_label
		FROM boxes WHERE image_path = ? ORDER BY position`, imagePath)
	if err != nil {
		return nil, fmt.Errorf("query boxes for %s: %w", imagePath, err)
	}
	defer func() { _ = rows.Close() }()

	var boxes []annotation.Box
	for rows.Next() {
		var b annotation.Box
		var autoLabel int
		if err := rows.Scan(&b.ID, &b.ClassID, &b.X, &b.Y, &b.Width, &b.Height, &autoLabel); err != nil {
			return nil, fmt.Errorf("scan box: %w", err)
		}
		b.AutoLabel = autoLabel != 0
		boxes = append(boxes, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boxes: %w", err)
	}
	return boxes, nil
}

// Delete removes an image and its annotations.
func (s *DB) Delete(imagePath string) error {
	if _, err := s.db.Exec("DELETE FROM images WHERE path = ?", imagePath); err != nil {
		return fmt.Errorf("delete image %s: %w", imagePath, err)
	}
	return nil
}

// Images lists every stored image path, most recently updated first.
func (s *DB) Images() ([]string, error) {
	rows, err := s.db.Query("SELECT path FROM images ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan image path: %w", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}
	return paths, nil
}

// Count returns the number of stored boxes for an image.
func (s *DB) Count(imagePath string) (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM boxes WHERE image_path = ?", imagePath).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count boxes for %s: %w", imagePath, err)
	}
	return n, nil
}
