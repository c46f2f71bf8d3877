package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"rams/internal/model"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

const tableSnapshotID = "main"

type Store struct {
	db  *sql.DB
	log logrus.FieldLogger
}

func NewStore(dbPath string, log logrus.FieldLogger) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	// sqlite allows a single writer; one connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	sqlStmt := `CREATE TABLE IF NOT EXISTS settings (key TEXT PRIMARY KEY, value TEXT NOT NULL);`
	sqlStmt += `CREATE TABLE IF NOT EXISTS round_history (id INTEGER PRIMARY KEY AUTOINCREMENT, round INTEGER, player_id INTEGER NOT NULL, player_name TEXT, points INTEGER, tricks INTEGER, won INTEGER, pot INTEGER, played_at DATETIME DEFAULT CURRENT_TIMESTAMP);`
	sqlStmt += `CREATE TABLE IF NOT EXISTS table_snapshots (id TEXT PRIMARY KEY, state_json TEXT, updated_at DATETIME DEFAULT CURRENT_TIMESTAMP);`
	if _, err = db.Exec(sqlStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, "INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// RecordRound writes one history row per seat in a single transaction.
func (s *Store) RecordRound(ctx context.Context, rec model.RoundRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO round_history(round, player_id, player_name, points, tricks, won, pot) VALUES(?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range rec.Players {
		won := 0
		var pot int64
		if rec.WinnerID >= 0 && p.ID == rec.WinnerID {
			won = 1
			pot = rec.Pot
		}
		if _, err := stmt.ExecContext(ctx, rec.Round, p.ID, p.Name, p.Total(), p.Tricks, won, pot); err != nil {
			return fmt.Errorf("record %s: %w", p.Name, err)
		}
	}
	return tx.Commit()
}

// PlayerStats aggregates the history per seat, labelled with the name the
// seat last played under.
func (s *Store) PlayerStats(ctx context.Context) ([]model.PlayerStat, error) {
	stats := make([]model.PlayerStat, 0)

	rows, err := s.db.QueryContext(ctx, `SELECT h.player_id,
		(SELECT l.player_name FROM round_history l WHERE l.player_id = h.player_id ORDER BY l.id DESC LIMIT 1),
		COUNT(*), SUM(h.won), SUM(h.points), SUM(h.pot)
		FROM round_history h GROUP BY h.player_id ORDER BY SUM(h.won) DESC, h.player_id ASC`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var st model.PlayerStat
		if err := rows.Scan(&st.ID, &st.Name, &st.TotalRounds, &st.Wins, &st.TotalPoints, &st.Winnings); err != nil {
			return stats, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// SaveTable stores the table so a restart can pick up where it left off.
func (s *Store) SaveTable(ctx context.Context, g model.GameState) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal table: %w", err)
	}
	_, err = s.db.ExecContext(ctx, "INSERT OR REPLACE INTO table_snapshots (id, state_json, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)", tableSnapshotID, string(data))
	if err != nil {
		return fmt.Errorf("save table: %w", err)
	}
	return nil
}

// LoadTable returns the last saved table, if any. A snapshot that no longer
// decodes is logged and ignored.
func (s *Store) LoadTable(ctx context.Context) (model.GameState, bool, error) {
	var stateJSON sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT state_json FROM table_snapshots WHERE id = ?", tableSnapshotID).Scan(&stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return model.GameState{}, false, nil
	}
	if err != nil {
		return model.GameState{}, false, fmt.Errorf("load table: %w", err)
	}
	if !stateJSON.Valid || stateJSON.String == "" {
		return model.GameState{}, false, nil
	}
	var g model.GameState
	if err := json.Unmarshal([]byte(stateJSON.String), &g); err != nil {
		s.log.WithError(err).Warn("discarding unreadable table snapshot")
		return model.GameState{}, false, nil
	}
	return g, true, nil
}

func (s *Store) DeleteTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM table_snapshots WHERE id = ?", tableSnapshotID)
	return err
}
