// Package history archives resolved calculations in a local sqlite
// database so past results survive restarts. Archiving is best-effort:
// the conversation never fails a turn because an insert failed.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/AA-Fatima/599-cal/app/config"
	"github.com/google/uuid"
	"github.com/samber/do"
)

const fileName = "history.db"

var _ do.Shutdownable = (*Service)(nil)

type Service struct {
	db *sql.DB
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewAt(filepath.Join(cfg.Data.Dir, fileName))
}

func NewAt(dbPath string) (*Service, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	s := &Service{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Service) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS calculations (
        id TEXT PRIMARY KEY,
        query TEXT NOT NULL,
        dish TEXT NOT NULL,
        total_calories REAL NOT NULL,
        created_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS calculation_lines (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        calculation_id TEXT NOT NULL,
        name TEXT NOT NULL,
        weight_g REAL NOT NULL,
        calories REAL NOT NULL,
        added INTEGER NOT NULL DEFAULT 0,
        removed INTEGER NOT NULL DEFAULT 0,
        FOREIGN KEY (calculation_id) REFERENCES calculations(id) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_calculations_created_at ON calculations(created_at);
    CREATE INDEX IF NOT EXISTS idx_calculation_lines_calculation_id ON calculation_lines(calculation_id);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func (s *Service) Save(ctx context.Context, calc *Calculation) error {
	if calc.ID == "" {
		calc.ID = uuid.NewString()
	}
	if calc.CreatedAt.IsZero() {
		calc.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO calculations (id, query, dish, total_calories, created_at) VALUES (?, ?, ?, ?, ?)`,
		calc.ID, calc.Query, calc.Dish, calc.TotalCalories, calc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert calculation: %w", err)
	}

	for _, line := range calc.Lines {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO calculation_lines (calculation_id, name, weight_g, calories, added, removed) VALUES (?, ?, ?, ?, ?, ?)`,
			calc.ID, line.Name, line.WeightG, line.Calories, line.Added, line.Removed)
		if err != nil {
			return fmt.Errorf("failed to insert line: %w", err)
		}
	}

	return tx.Commit()
}

// Recent returns the newest calculations first, lines included.
func (s *Service) Recent(ctx context.Context, limit int) ([]*Calculation, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, dish, total_calories, created_at FROM calculations ORDER BY created_at DESC, id LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query calculations: %w", err)
	}
	defer rows.Close()

	var result []*Calculation
	for rows.Next() {
		var calc Calculation
		if err = rows.Scan(&calc.ID, &calc.Query, &calc.Dish, &calc.TotalCalories, &calc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan calculation: %w", err)
		}
		result = append(result, &calc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read calculations: %w", err)
	}

	for _, calc := range result {
		if calc.Lines, err = s.linesFor(ctx, calc.ID); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (s *Service) linesFor(ctx context.Context, calculationID string) ([]Line, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, weight_g, calories, added, removed FROM calculation_lines WHERE calculation_id = ? ORDER BY id`,
		calculationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	defer rows.Close()

	var result []Line
	for rows.Next() {
		var line Line
		if err = rows.Scan(&line.Name, &line.WeightG, &line.Calories, &line.Added, &line.Removed); err != nil {
			return nil, fmt.Errorf("failed to scan line: %w", err)
		}
		result = append(result, line)
	}

	return result, rows.Err()
}

func (s *Service) Shutdown() error {
	return s.db.Close()
}
