package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // sqlite driver
)

const minCleanupInterval = 10 * time.Millisecond

// SQLite keeps the journal in SQLite database
type SQLite struct {
	db        *sql.DB
	retention time.Duration
	lock      sync.RWMutex
	done      chan struct{}
	cleanWg   sync.WaitGroup
}

// NewInMemory creates an ephemeral in-memory SQLite journal.
// Each call creates an isolated database using a unique URI.
func NewInMemory(retention time.Duration) *SQLite {
	// generate unique URI to isolate each in-memory store instance
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("failed to generate random bytes: " + err.Error())
	}
	uri := "file:" + hex.EncodeToString(buf[:]) + "?mode=memory&cache=shared"
	s, err := NewSQLite(uri, retention)
	if err != nil {
		panic("failed to create in-memory sqlite: " + err.Error())
	}
	return s
}

// NewSQLite creates a persistent SQLite journal, records older than retention are removed periodically
func NewSQLite(dbFile string, retention time.Duration) (*SQLite, error) {
	log.Printf("[INFO] sqlite (%s) journal, retention %v", dbFile, retention)
	if retention <= 0 {
		return nil, fmt.Errorf("invalid retention %v", retention)
	}

	db, err := sql.Open("sqlite", dbFile)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// configure connection pool for SQLite (single writer)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx := context.Background()
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL", "PRAGMA busy_timeout=5000"} {
		if _, err = db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %q: %w", pragma, err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS submissions (
			id TEXT PRIMARY KEY,
			ts INTEGER NOT NULL,
			tool TEXT NOT NULL,
			direction TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL,
			code TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_submissions_ts ON submissions(ts);
	`
	if _, err = db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	result := &SQLite{db: db, retention: retention, done: make(chan struct{})}
	result.activateCleaner(max(min(retention/2, time.Hour), minCleanupInterval))
	return result, nil
}

// Add appends a record, fills id and timestamp if missing
func (s *SQLite) Add(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.TS.IsZero() {
		rec.TS = time.Now()
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO submissions (id, ts, tool, direction, outcome, code) VALUES (?, ?, ?, ?, ?, ?)",
		rec.ID, rec.TS.UnixMilli(), rec.Tool, rec.Direction, string(rec.Outcome), rec.Code,
	)
	if err != nil {
		log.Printf("[ERROR] failed to save record: %v", err)
		return ErrSaveRejected
	}
	log.Printf("[DEBUG] journal %s %s %s %s", rec.Tool, rec.Direction, rec.Outcome, rec.Code)
	return nil
}

// Stats returns counts per tool and outcome, and blocked counts per diagnostic code
func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	res := Stats{Tools: []ToolStats{}, Codes: map[string]int{}}
	rows, err := s.db.QueryContext(ctx,
		"SELECT tool, outcome, COUNT(*) FROM submissions GROUP BY tool, outcome ORDER BY tool")
	if err != nil {
		log.Printf("[ERROR] failed to query stats: %v", err)
		return Stats{}, ErrStatsRejected
	}
	defer rows.Close()

	for rows.Next() {
		var tool, outcome string
		var count int
		if err := rows.Scan(&tool, &outcome, &count); err != nil {
			return Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		if n := len(res.Tools); n == 0 || res.Tools[n-1].Tool != tool {
			res.Tools = append(res.Tools, ToolStats{Tool: tool})
		}
		ts := &res.Tools[len(res.Tools)-1]
		switch Outcome(outcome) {
		case OutcomeBlocked:
			ts.Blocked += count
		case OutcomeSent:
			ts.Sent += count
		case OutcomeFailed:
			ts.Failed += count
		}
		res.Total += count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate stats: %w", err)
	}

	codes, err := s.db.QueryContext(ctx,
		"SELECT code, COUNT(*) FROM submissions WHERE outcome = ? AND code != '' GROUP BY code", string(OutcomeBlocked))
	if err != nil {
		log.Printf("[ERROR] failed to query codes: %v", err)
		return Stats{}, ErrStatsRejected
	}
	defer codes.Close()
	for codes.Next() {
		var code string
		var count int
		if err := codes.Scan(&code, &count); err != nil {
			return Stats{}, fmt.Errorf("scan codes: %w", err)
		}
		res.Codes[code] = count
	}
	if err := codes.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate codes: %w", err)
	}

	var since sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MIN(ts) FROM submissions").Scan(&since); err != nil {
		return Stats{}, fmt.Errorf("query oldest record: %w", err)
	}
	if since.Valid {
		res.Since = time.UnixMilli(since.Int64)
	}
	return res, nil
}

// Close closes the database connection and stops the cleaner goroutine
func (s *SQLite) Close() error {
	close(s.done)
	s.cleanWg.Wait() // wait for cleaner goroutine to finish
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

// activateCleaner runs periodic removal of records older than retention
func (s *SQLite) activateCleaner(every time.Duration) {
	log.Printf("[INFO] cleaner activated, every %v", every)

	s.cleanWg.Add(1)
	ticker := time.NewTicker(every)
	go func() {
		defer s.cleanWg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.lock.Lock()
				result, err := s.db.ExecContext(context.Background(), "DELETE FROM submissions WHERE ts < ?",
					time.Now().Add(-s.retention).UnixMilli())
				s.lock.Unlock()
				if err != nil {
					log.Printf("[WARN] cleanup failed: %v", err)
					continue
				}
				if count, _ := result.RowsAffected(); count > 0 {
					log.Printf("[INFO] cleaned %d old records", count)
				}
			}
		}
	}()
}
