// Package store caches converted beatmaps and conversion failures in sqlite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"osuconv/beatmap"
	"osuconv/logging"
	"osuconv/objects"
)

var ErrNotFound = errors.New("beatmap not in store")

const schema = `
CREATE TABLE IF NOT EXISTS beatmaps (
	md5          TEXT NOT NULL,
	mode         TEXT NOT NULL,
	mods         TEXT NOT NULL,
	beatmap_id   INTEGER NOT NULL,
	title        TEXT NOT NULL,
	version      TEXT NOT NULL,
	ar           REAL NOT NULL,
	cs           REAL NOT NULL,
	od           REAL NOT NULL,
	hp           REAL NOT NULL,
	circles      INTEGER NOT NULL,
	sliders      INTEGER NOT NULL,
	spinners     INTEGER NOT NULL,
	ticks        INTEGER NOT NULL,
	repeats      INTEGER NOT NULL,
	max_combo    INTEGER NOT NULL,
	max_stack    INTEGER NOT NULL,
	length_ms    REAL NOT NULL,
	converted_at INTEGER NOT NULL,
	PRIMARY KEY (md5, mode, mods)
);
CREATE TABLE IF NOT EXISTS objects (
	md5          TEXT NOT NULL,
	mode         TEXT NOT NULL,
	mods         TEXT NOT NULL,
	idx          INTEGER NOT NULL,
	kind         TEXT NOT NULL,
	start_time   REAL NOT NULL,
	end_time     REAL NOT NULL,
	x            REAL NOT NULL,
	y            REAL NOT NULL,
	stack_height INTEGER NOT NULL,
	stacked_x    REAL NOT NULL,
	stacked_y    REAL NOT NULL,
	PRIMARY KEY (md5, mode, mods, idx)
);
CREATE TABLE IF NOT EXISTS failures (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	category  TEXT NOT NULL,
	subject   TEXT NOT NULL,
	reason    TEXT NOT NULL,
	failed_at INTEGER NOT NULL
);`

// Summary is the stored result of one conversion.
type Summary struct {
	MD5       string  `json:"md5"`
	Mode      string  `json:"mode"`
	Mods      string  `json:"mods"`
	BeatmapID int     `json:"beatmap_id"`
	Title     string  `json:"title"`
	Version   string  `json:"version"`
	AR        float64 `json:"ar"`
	CS        float64 `json:"cs"`
	OD        float64 `json:"od"`
	HP        float64 `json:"hp"`
	Circles   int     `json:"circles"`
	Sliders   int     `json:"sliders"`
	Spinners  int     `json:"spinners"`
	Ticks     int     `json:"ticks"`
	Repeats   int     `json:"repeats"`
	MaxCombo  int     `json:"max_combo"`
	MaxStack  int     `json:"max_stack"`
	LengthMS  float64 `json:"length_ms"`
}

// Summarize describes a converted beatmap.
func Summarize(b *beatmap.Beatmap, mods string) Summary {
	c := b.Counts()
	return Summary{
		MD5:       b.Metadata.MD5,
		Mode:      b.Mode.String(),
		Mods:      mods,
		BeatmapID: b.Metadata.BeatmapID,
		Title:     b.Metadata.Title,
		Version:   b.Metadata.Version,
		AR:        b.Difficulty.ApproachRate,
		CS:        b.Difficulty.CircleSize,
		OD:        b.Difficulty.OverallDifficulty,
		HP:        b.Difficulty.DrainRate,
		Circles:   c.Circles,
		Sliders:   c.Sliders,
		Spinners:  c.Spinners,
		Ticks:     c.Ticks,
		Repeats:   c.Repeats,
		MaxCombo:  b.MaxCombo(),
		MaxStack:  b.MaxStackHeight(),
		LengthMS:  b.Length(),
	}
}

// Failure is a recorded decode, download or conversion failure.
type Failure struct {
	Category string
	Subject  string
	Reason   string
	FailedAt time.Time
}

// Store is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" works for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveBeatmap replaces the stored conversion of b under (md5, mode, mods).
func (s *Store) SaveBeatmap(ctx context.Context, b *beatmap.Beatmap, mods string) (err error) {
	sum := Summarize(b, mods)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO beatmaps VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.MD5, sum.Mode, sum.Mods, sum.BeatmapID, sum.Title, sum.Version,
		sum.AR, sum.CS, sum.OD, sum.HP,
		sum.Circles, sum.Sliders, sum.Spinners, sum.Ticks, sum.Repeats,
		sum.MaxCombo, sum.MaxStack, sum.LengthMS, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save beatmap %s: %w", sum.MD5, err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM objects WHERE md5 = ? AND mode = ? AND mods = ?`, sum.MD5, sum.Mode, sum.Mods); err != nil {
		return fmt.Errorf("clear objects %s: %w", sum.MD5, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO objects VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, o := range b.HitObjects {
		base := o.Common()
		stacked := base.StackedPosition()
		if _, err = stmt.ExecContext(ctx, sum.MD5, sum.Mode, sum.Mods, i, o.Kind().String(),
			base.StartTime, o.EndTime(), base.Position.X, base.Position.Y,
			base.StackHeight, stacked.X, stacked.Y); err != nil {
			return fmt.Errorf("save object %d of %s: %w", i, sum.MD5, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	logging.Logger().Info("stored beatmap", "md5", sum.MD5, "mods", sum.Mods, "objects", len(b.HitObjects))
	return nil
}

// Summary returns a stored conversion, or ErrNotFound.
func (s *Store) Summary(ctx context.Context, md5 string, mode objects.Mode, mods string) (Summary, error) {
	sum := Summary{MD5: md5, Mode: mode.String(), Mods: mods}
	err := s.db.QueryRowContext(ctx, `SELECT beatmap_id, title, version, ar, cs, od, hp,
		circles, sliders, spinners, ticks, repeats, max_combo, max_stack, length_ms
		FROM beatmaps WHERE md5 = ? AND mode = ? AND mods = ?`, md5, sum.Mode, mods).Scan(
		&sum.BeatmapID, &sum.Title, &sum.Version, &sum.AR, &sum.CS, &sum.OD, &sum.HP,
		&sum.Circles, &sum.Sliders, &sum.Spinners, &sum.Ticks, &sum.Repeats,
		&sum.MaxCombo, &sum.MaxStack, &sum.LengthMS)
	if errors.Is(err, sql.ErrNoRows) {
		return Summary{}, fmt.Errorf("%s %s %s: %w", md5, sum.Mode, mods, ErrNotFound)
	}
	if err != nil {
		return Summary{}, err
	}
	return sum, nil
}

// StackHeights returns the stored stack height of every top level object in order.
func (s *Store) StackHeights(ctx context.Context, md5 string, mode objects.Mode, mods string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT stack_height FROM objects
		WHERE md5 = ? AND mode = ? AND mods = ? ORDER BY idx`, md5, mode.String(), mods)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var h int
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// RecordFailure keeps a failure for later inspection. category groups
// failures ("decode", "fetch", "convert"); subject names the input.
func (s *Store) RecordFailure(ctx context.Context, category, subject, reason string) error {
	logging.Logger().Warn("fail", "category", category, "subject", subject)
	_, err := s.db.ExecContext(ctx, `INSERT INTO failures (category, subject, reason, failed_at) VALUES (?, ?, ?, ?)`,
		category, subject, reason, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("record failure %s/%s: %w", category, subject, err)
	}
	return nil
}

// Failures lists recorded failures, oldest first.
func (s *Store) Failures(ctx context.Context) ([]Failure, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, subject, reason, failed_at FROM failures ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Failure
	for rows.Next() {
		var f Failure
		var at int64
		if err := rows.Scan(&f.Category, &f.Subject, &f.Reason, &at); err != nil {
			return nil, err
		}
		f.FailedAt = time.Unix(at, 0)
		out = append(out, f)
	}
	return out, rows.Err()
}
