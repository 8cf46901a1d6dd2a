package jig

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"

	"jigpipe/internal/modules"
)

// Store manages jig persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the jig database at path and applies
// migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure jig db directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if err := applyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateJIG allocates the jig row and its ordered module rows in a single
// transaction. Missing cover and ending are materialised as empty
// design-page modules, so the module list is never shorter than two.
func (s *Store) CreateJIG(ctx context.Context, p CreateParams) (uuid.UUID, error) {
	if p.DisplayName == "" {
		return uuid.Nil, errors.New("jig: display name is required")
	}
	if p.CreatorID == "" {
		return uuid.Nil, errors.New("jig: creator id is required")
	}

	cover := p.Cover
	if cover == nil {
		page := modules.NewDesignPage(0)
		cover = &page
	}
	ending := p.Ending
	if ending == nil {
		page := modules.NewDesignPage(0)
		ending = &page
	}

	ordered := make([]modules.Module, 0, len(p.Modules)+2)
	ordered = append(ordered, *cover)
	ordered = append(ordered, p.Modules...)
	ordered = append(ordered, *ending)
	for i := range ordered {
		ordered[i].Index = uint16(i)
	}

	id := uuid.New()
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin create jig: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO jigs (id, display_name, creator_id, author_id, cover_id, ending_id, publish_at, live, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		id.String(), p.DisplayName, p.CreatorID, p.CreatorID, // author defaults to creator
		cover.ID.String(), ending.ID.String(),
		toNullString(nullableTime(p.PublishAt)), timestamp, timestamp,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert jig: %w", err)
	}

	if err := insertModules(ctx, tx, id, ordered); err != nil {
		return uuid.Nil, err
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit create jig: %w", err)
	}
	return id, nil
}

// GetJIG returns the jig with its module list in insertion order, or nil
// when absent.
func (s *Store) GetJIG(ctx context.Context, id uuid.UUID) (*JIG, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT display_name, creator_id, author_id, cover_id, ending_id, publish_at, live, created_at, updated_at
		 FROM jigs WHERE id = ?`, id.String())

	var j JIG
	var coverID, endingID, createdAt, updatedAt string
	var publishAt sql.NullString
	var live int
	err := row.Scan(&j.DisplayName, &j.CreatorID, &j.AuthorID, &coverID, &endingID, &publishAt, &live, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select jig: %w", err)
	}

	j.ID = id
	j.Live = live != 0
	if j.CoverID, err = uuid.Parse(coverID); err != nil {
		return nil, fmt.Errorf("parse cover id: %w", err)
	}
	if j.EndingID, err = uuid.Parse(endingID); err != nil {
		return nil, fmt.Errorf("parse ending id: %w", err)
	}
	if j.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if j.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if publishAt.Valid {
		ts, err := time.Parse(time.RFC3339Nano, publishAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse publish_at: %w", err)
		}
		j.PublishAt = &ts
	}

	if j.Modules, err = s.loadModules(ctx, id); err != nil {
		return nil, err
	}
	return &j, nil
}

// UpdateJIG applies a conditional update: fields only change when the
// proposed value differs, and updated_at is bumped only when something
// actually changed. It reports whether the jig exists.
func (s *Store) UpdateJIG(ctx context.Context, id uuid.UUID, p UpdateParams) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin update jig: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT display_name, author_id, cover_id, ending_id, publish_at FROM jigs WHERE id = ?`, id.String())
	var displayName, authorID, coverID, endingID string
	var publishAt sql.NullString
	err = row.Scan(&displayName, &authorID, &coverID, &endingID, &publishAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select jig for update: %w", err)
	}

	changed := false
	if p.DisplayName != nil && *p.DisplayName != displayName {
		displayName = *p.DisplayName
		changed = true
	}
	if p.AuthorID != nil && *p.AuthorID != authorID {
		authorID = *p.AuthorID
		changed = true
	}
	if p.PublishSet && nullableTime(p.PublishAt) != nullStringValue(publishAt) {
		publishAt = toNullString(nullableTime(p.PublishAt))
		changed = true
	}
	if p.Cover != nil && p.Cover.ID.String() != coverID {
		coverID = p.Cover.ID.String()
		changed = true
	}
	if p.Ending != nil && p.Ending.ID.String() != endingID {
		endingID = p.Ending.ID.String()
		changed = true
	}

	if p.ModulesSet {
		// Replacing the list always counts as a mutation.
		changed = true
		cover, ending, err := coverAndEnding(ctx, tx, id, p.Cover, p.Ending)
		if err != nil {
			return false, err
		}
		ordered := make([]modules.Module, 0, len(p.Modules)+2)
		ordered = append(ordered, cover)
		ordered = append(ordered, p.Modules...)
		ordered = append(ordered, ending)
		for i := range ordered {
			ordered[i].Index = uint16(i)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM jig_modules WHERE jig_id = ?`, id.String()); err != nil {
			return false, fmt.Errorf("clear jig modules: %w", err)
		}
		if err := insertModules(ctx, tx, id, ordered); err != nil {
			return false, err
		}
		coverID = cover.ID.String()
		endingID = ending.ID.String()
	} else if p.Cover != nil || p.Ending != nil {
		if p.Cover != nil {
			if err := replaceModule(ctx, tx, id, *p.Cover); err != nil {
				return false, err
			}
		}
		if p.Ending != nil {
			if err := replaceModule(ctx, tx, id, *p.Ending); err != nil {
				return false, err
			}
		}
	}

	if changed {
		timestamp := time.Now().UTC().Format(time.RFC3339Nano)
		_, err = tx.ExecContext(ctx,
			`UPDATE jigs SET display_name = ?, author_id = ?, cover_id = ?, ending_id = ?, publish_at = ?, updated_at = ? WHERE id = ?`,
			displayName, authorID, coverID, endingID, publishAt, timestamp, id.String())
		if err != nil {
			return false, fmt.Errorf("update jig: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit update jig: %w", err)
	}
	return true, nil
}

// DeleteJIG removes the jig; module links cascade.
func (s *Store) DeleteJIG(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM jigs WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete jig: %w", err)
	}
	return nil
}

// Publish flips the jig from draft to live atomically. Publishing an
// already-live jig is a no-op that still reports existence.
func (s *Store) Publish(ctx context.Context, id uuid.UUID) (bool, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE jigs SET live = 1, publish_at = COALESCE(publish_at, ?), updated_at = ? WHERE id = ? AND live = 0`,
		timestamp, timestamp, id.String())
	if err != nil {
		return false, fmt.Errorf("publish jig: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("publish jig rows: %w", err)
	}
	if affected > 0 {
		return true, nil
	}
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM jigs WHERE id = ?`, id.String()).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check jig existence: %w", err)
	}
	return true, nil
}

// UpdateModule patches one module's body, index, or completion flag.
func (s *Store) UpdateModule(ctx context.Context, jigID uuid.UUID, module modules.Module) error {
	body, err := json.Marshal(module.Body)
	if err != nil {
		return fmt.Errorf("marshal module body: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE jig_modules SET idx = ?, kind = ?, complete = ?, body = ? WHERE jig_id = ? AND module_id = ?`,
		module.Index, string(module.Kind), boolInt(module.Complete), string(body), jigID.String(), module.ID.String())
	if err != nil {
		return fmt.Errorf("update module: %w", err)
	}
	return nil
}

func (s *Store) loadModules(ctx context.Context, id uuid.UUID) ([]modules.Module, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT module_id, idx, kind, complete, body FROM jig_modules WHERE jig_id = ? ORDER BY idx`, id.String())
	if err != nil {
		return nil, fmt.Errorf("select jig modules: %w", err)
	}
	defer rows.Close()

	var out []modules.Module
	for rows.Next() {
		var moduleID, kind, body string
		var idx, complete int
		if err := rows.Scan(&moduleID, &idx, &kind, &complete, &body); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		m := modules.Module{Kind: modules.Kind(kind), Index: uint16(idx), Complete: complete != 0}
		if m.ID, err = uuid.Parse(moduleID); err != nil {
			return nil, fmt.Errorf("parse module id: %w", err)
		}
		if err := json.Unmarshal([]byte(body), &m.Body); err != nil {
			return nil, fmt.Errorf("unmarshal module body: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func insertModules(ctx context.Context, tx *sql.Tx, jigID uuid.UUID, ordered []modules.Module) error {
	for _, module := range ordered {
		body, err := json.Marshal(module.Body)
		if err != nil {
			return fmt.Errorf("marshal module body: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO jig_modules (jig_id, module_id, idx, kind, complete, body) VALUES (?, ?, ?, ?, ?, ?)`,
			jigID.String(), module.ID.String(), module.Index, string(module.Kind), boolInt(module.Complete), string(body))
		if err != nil {
			return fmt.Errorf("insert module: %w", err)
		}
	}
	return nil
}

func replaceModule(ctx context.Context, tx *sql.Tx, jigID uuid.UUID, module modules.Module) error {
	body, err := json.Marshal(module.Body)
	if err != nil {
		return fmt.Errorf("marshal module body: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO jig_modules (jig_id, module_id, idx, kind, complete, body) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (jig_id, module_id) DO UPDATE SET idx = excluded.idx, kind = excluded.kind, complete = excluded.complete, body = excluded.body`,
		jigID.String(), module.ID.String(), module.Index, string(module.Kind), boolInt(module.Complete), string(body))
	if err != nil {
		return fmt.Errorf("replace module: %w", err)
	}
	return nil
}

func coverAndEnding(ctx context.Context, tx *sql.Tx, jigID uuid.UUID, newCover, newEnding *modules.Module) (modules.Module, modules.Module, error) {
	if newCover != nil && newEnding != nil {
		return *newCover, *newEnding, nil
	}
	row := tx.QueryRowContext(ctx, `SELECT cover_id, ending_id FROM jigs WHERE id = ?`, jigID.String())
	var coverID, endingID string
	if err := row.Scan(&coverID, &endingID); err != nil {
		return modules.Module{}, modules.Module{}, fmt.Errorf("select cover/ending: %w", err)
	}
	cover, err := loadModuleTx(ctx, tx, jigID, coverID)
	if err != nil {
		return modules.Module{}, modules.Module{}, err
	}
	ending, err := loadModuleTx(ctx, tx, jigID, endingID)
	if err != nil {
		return modules.Module{}, modules.Module{}, err
	}
	if newCover != nil {
		cover = *newCover
	}
	if newEnding != nil {
		ending = *newEnding
	}
	return cover, ending, nil
}

func loadModuleTx(ctx context.Context, tx *sql.Tx, jigID uuid.UUID, moduleID string) (modules.Module, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT idx, kind, complete, body FROM jig_modules WHERE jig_id = ? AND module_id = ?`,
		jigID.String(), moduleID)
	var kind, body string
	var idx, complete int
	if err := row.Scan(&idx, &kind, &complete, &body); err != nil {
		return modules.Module{}, fmt.Errorf("load module %s: %w", moduleID, err)
	}
	m := modules.Module{Kind: modules.Kind(kind), Index: uint16(idx), Complete: complete != 0}
	var err error
	if m.ID, err = uuid.Parse(moduleID); err != nil {
		return modules.Module{}, fmt.Errorf("parse module id: %w", err)
	}
	if err := json.Unmarshal([]byte(body), &m.Body); err != nil {
		return modules.Module{}, fmt.Errorf("unmarshal module body: %w", err)
	}
	return m, nil
}

func nullableTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func toNullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func nullStringValue(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
