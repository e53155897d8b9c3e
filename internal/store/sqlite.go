package store

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding the mock platform's state:
// uploaded objects, document records, and processor runs.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used
// by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "runcheck-mock.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

// --- Objects ---

// SaveObject stores (or replaces) an uploaded object.
func (s *Store) SaveObject(o Object) error {
	_, err := s.db.Exec(`
		INSERT INTO objects (bucket, path, content_type, data, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(bucket, path) DO UPDATE SET
			content_type = excluded.content_type,
			data = excluded.data`,
		o.Bucket, o.Path, o.ContentType, o.Data, o.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// GetObject loads an object by bucket and path.
func (s *Store) GetObject(bucket, path string) (Object, error) {
	var o Object
	var createdAt string
	err := s.db.QueryRow(`
		SELECT bucket, path, content_type, data, created_at
		FROM objects WHERE bucket = ? AND path = ?`, bucket, path,
	).Scan(&o.Bucket, &o.Path, &o.ContentType, &o.Data, &createdAt)
	if err == sql.ErrNoRows {
		return Object{}, ErrNotFound
	}
	if err != nil {
		return Object{}, err
	}
	if o.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Object{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return o, nil
}

// --- Documents ---

func (s *Store) SaveDocument(d Document) error {
	_, err := s.db.Exec(`
		INSERT INTO documents (id, name, size_bytes, mime_type, storage_path, organization_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.SizeBytes, d.MimeType, d.StoragePath, d.OrganizationID,
		d.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetDocument(id string) (Document, error) {
	var d Document
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, name, size_bytes, mime_type, storage_path, organization_id, created_at
		FROM documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.Name, &d.SizeBytes, &d.MimeType, &d.StoragePath, &d.OrganizationID, &createdAt)
	if err == sql.ErrNoRows {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Document{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return d, nil
}

// --- Runs ---

// CreateRun inserts a new run in the queued state.
func (s *Store) CreateRun(r Run) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, document_id, processor_id, status, total_operations, completed_operations, failed_operations, created_at)
		VALUES (?, ?, ?, 'queued', ?, 0, 0, ?)`,
		r.ID, r.DocumentID, r.ProcessorID, r.TotalOperations,
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetRun(id string) (Run, error) {
	var r Run
	var createdAt string
	var startedAt, completedAt sql.NullString
	err := s.db.QueryRow(`
		SELECT id, document_id, processor_id, status, total_operations, completed_operations, failed_operations, started_at, completed_at, created_at
		FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.DocumentID, &r.ProcessorID, &r.Status, &r.TotalOperations,
		&r.CompletedOperations, &r.FailedOperations, &startedAt, &completedAt, &createdAt)
	if err == sql.ErrNoRows {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, err
	}
	r.StartedAt = startedAt.String
	r.CompletedAt = completedAt.String
	if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Run{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return r, nil
}

// ClaimNextQueuedRun atomically moves the oldest queued run to running and
// stamps started_at. Returns nil when no run is queued.
func (s *Store) ClaimNextQueuedRun() (*Run, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning claim transaction: %w", err)
	}

	var id string
	err = tx.QueryRow(`
		SELECT id FROM runs WHERE status = 'queued'
		ORDER BY created_at ASC LIMIT 1`,
	).Scan(&id)
	if err == sql.ErrNoRows {
		tx.Rollback()
		return nil, nil
	}
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("selecting next run: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := tx.Exec(`UPDATE runs SET status = 'running', started_at = ? WHERE id = ? AND status = 'queued'`, now, id)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("updating run status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("checking updated run rows: %w", err)
	}
	if n != 1 {
		tx.Rollback()
		return nil, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	run, err := s.GetRun(id)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// SetRunProgress updates the operation counters of a run.
func (s *Store) SetRunProgress(id string, completed, failed int) error {
	res, err := s.db.Exec(`UPDATE runs SET completed_operations = ?, failed_operations = ? WHERE id = ?`,
		completed, failed, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FinishRun moves a run to its terminal status and stamps completed_at.
func (s *Store) FinishRun(id, status string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`UPDATE runs SET status = ?, completed_at = ? WHERE id = ?`, status, now, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
