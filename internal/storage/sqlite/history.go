package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/yegors/routesim/internal/telemetry"
	"github.com/yegors/routesim/pkg/logger"
)

// HistoryStorage persists the selected aircraft's flight log. It keeps at
// most maxRows entries, dropping the oldest.
type HistoryStorage struct {
	db      *sql.DB
	maxRows int
	logger  *logger.Logger
}

// NewHistoryStorage creates the history table if needed. maxRows <= 0 keeps
// every entry.
func NewHistoryStorage(db *sql.DB, maxRows int, log *logger.Logger) (*HistoryStorage, error) {
	s := &HistoryStorage{
		db:      db,
		maxRows: maxRows,
		logger:  log.Named("sqlite-history"),
	}
	if err := s.initDB(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *HistoryStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			icao24 TEXT NOT NULL,
			kind TEXT NOT NULL,
			sim_time TEXT NOT NULL,
			label TEXT NOT NULL,
			altitude REAL NOT NULL,
			velocity REAL NOT NULL,
			position_source TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create history table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_history_icao24 ON history(icao24)`)
	if err != nil {
		return fmt.Errorf("failed to create icao24 index: %w", err)
	}

	return nil
}

// Append stores an entry and returns its id
func (s *HistoryStorage) Append(entry telemetry.HistoryEntry) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO history (icao24, kind, sim_time, label, altitude, velocity, position_source)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ICAO24,
		string(entry.Kind),
		entry.SimTime.UTC().Format(time.RFC3339),
		entry.Label,
		entry.Altitude,
		entry.Velocity,
		entry.PositionSource,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert history entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	if s.maxRows > 0 {
		if _, err := s.db.Exec(`DELETE FROM history WHERE id <= ?`, id-int64(s.maxRows)); err != nil {
			return id, fmt.Errorf("failed to trim history: %w", err)
		}
	}

	return id, nil
}

// List returns up to limit entries, newest first
func (s *HistoryStorage) List(limit int) ([]telemetry.HistoryEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, icao24, kind, sim_time, label, altitude, velocity, position_source
		FROM history
		ORDER BY id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := make([]telemetry.HistoryEntry, 0)
	for rows.Next() {
		var entry telemetry.HistoryEntry
		var kind, simTime string
		var source sql.NullString

		if err := rows.Scan(
			&entry.ID,
			&entry.ICAO24,
			&kind,
			&simTime,
			&entry.Label,
			&entry.Altitude,
			&entry.Velocity,
			&source,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}

		entry.Kind = telemetry.HistoryKind(kind)
		entry.SimTime, err = time.Parse(time.RFC3339, simTime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse sim_time: %w", err)
		}
		if source.Valid {
			entry.PositionSource = source.String
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Clear removes every entry
func (s *HistoryStorage) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	s.logger.Debug("History cleared")
	return nil
}

// Count returns the number of stored entries
func (s *HistoryStorage) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return n, nil
}
