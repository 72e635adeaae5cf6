// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package history keeps a local SQLite record of edit runs made from the
// command line, the counterpart of the BigQuery runs table of the server.
package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jaycherian/gcp-go-video-editor/internal/core/model"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout has a fixed width so that text order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found in history")

// Store is a run history backed by one SQLite file.
type Store struct {
	conn *sql.DB
}

// Open creates or opens the database at path and applies pending migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// One writer; the CLI never runs two edits in one process.
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}
	for _, e := range entries {
		name := e.Name()
		var applied int
		err := s.conn.QueryRow("SELECT 1 FROM _migrations WHERE name = ?", name).Scan(&applied)
		if err == nil {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return err
		}
		if _, err := s.conn.Exec(string(content)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
		if _, err := s.conn.Exec("INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		slog.Debug("applied history migration", "name", name)
	}
	return nil
}

// Record inserts the run or replaces an earlier record with the same id.
func (s *Store) Record(ctx context.Context, run *model.EditRun) error {
	segments, err := json.Marshal(run.Segments)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, `
INSERT INTO edit_runs (run_id, input_path, output_path, status, error_kind, error_detail, model,
    duration_seconds, output_duration_seconds, segments, create_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (run_id) DO UPDATE SET
    output_path = excluded.output_path,
    status = excluded.status,
    error_kind = excluded.error_kind,
    error_detail = excluded.error_detail,
    output_duration_seconds = excluded.output_duration_seconds,
    segments = excluded.segments`,
		run.RunId, run.InputPath, run.OutputPath, run.Status, run.ErrorKind, run.ErrorDetail, run.Model,
		run.DurationSeconds, run.OutputDurationSeconds, string(segments), run.CreateDate.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.RunId, err)
	}
	return nil
}

const selectRuns = `
SELECT run_id, input_path, output_path, status, error_kind, error_detail, model,
    duration_seconds, output_duration_seconds, segments, create_date
FROM edit_runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*model.EditRun, error) {
	run := &model.EditRun{}
	var segments, created string
	err := row.Scan(&run.RunId, &run.InputPath, &run.OutputPath, &run.Status, &run.ErrorKind, &run.ErrorDetail,
		&run.Model, &run.DurationSeconds, &run.OutputDurationSeconds, &segments, &created)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(segments), &run.Segments); err != nil {
		return nil, fmt.Errorf("run %s: bad segments column: %w", run.RunId, err)
	}
	if run.CreateDate, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("run %s: bad create_date: %w", run.RunId, err)
	}
	return run, nil
}

// Get returns one run.
func (s *Store) Get(ctx context.Context, runID string) (*model.EditRun, error) {
	run, err := scanRun(s.conn.QueryRowContext(ctx, selectRuns+" WHERE run_id = ?", runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// List returns the newest runs first.
func (s *Store) List(ctx context.Context, limit int) ([]*model.EditRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.QueryContext(ctx, selectRuns+" ORDER BY create_date DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.EditRun, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
