// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

// Package database provides the DuckDB-backed catalog and interaction
// store. It implements the data access interfaces consumed by the
// recommendation engine.
//
// Categorical tag lists (subjects, places, times, people, languages) are
// stored as JSON text columns: they are opaque to SQL filtering, and the
// engine does all set logic in memory.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/mstralka/mark-flicklit-sub001/internal/config"
	"github.com/mstralka/mark-flicklit-sub001/internal/metrics"
	"github.com/mstralka/mark-flicklit-sub001/internal/models"
)

// DB wraps the DuckDB connection and provides data access methods.
type DB struct {
	conn *sql.DB
	log  zerolog.Logger
}

// New opens (or creates) the database and initializes the schema. An
// empty path opens an in-memory database.
func New(cfg *config.DatabaseConfig, log zerolog.Logger) (*DB, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	connStr := ""
	if cfg.Path != "" {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("create database directory %s: %w", dbDir, err)
			}
		}
		connStr = fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
			cfg.Path, threads, cfg.MaxMemory)
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db := &DB{
		conn: conn,
		log:  log.With().Str("component", "database").Logger(),
	}
	if err := db.initSchema(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db.log.Info().Str("path", cfg.Path).Int("threads", threads).Msg("database opened")
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS works (
			id VARCHAR PRIMARY KEY,
			title VARCHAR NOT NULL,
			subtitle VARCHAR DEFAULT '',
			description VARCHAR DEFAULT '',
			first_publish_date VARCHAR DEFAULT '',
			subjects VARCHAR DEFAULT '[]',
			subject_places VARCHAR DEFAULT '[]',
			subject_times VARCHAR DEFAULT '[]',
			subject_people VARCHAR DEFAULT '[]',
			original_languages VARCHAR DEFAULT '[]',
			created_at TIMESTAMP DEFAULT current_timestamp
		)`,
		`CREATE TABLE IF NOT EXISTS authors (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS work_authors (
			work_id VARCHAR NOT NULL,
			author_id VARCHAR NOT NULL,
			role VARCHAR DEFAULT '',
			PRIMARY KEY (work_id, author_id)
		)`,
		`CREATE TABLE IF NOT EXISTS interactions (
			id VARCHAR PRIMARY KEY,
			user_id VARCHAR NOT NULL,
			work_id VARCHAR NOT NULL,
			liked BOOLEAN NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions (user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_work ON interactions (work_id)`,
	}
	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

const workColumns = `w.id, w.title, w.subtitle, w.description, w.first_publish_date,
	w.subjects, w.subject_places, w.subject_times, w.subject_people, w.original_languages`

// GetWork fetches a single work with its authors, or nil when absent.
func (db *DB) GetWork(ctx context.Context, workID string) (*models.Work, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+workColumns+` FROM works w WHERE w.id = ?`, workID)

	work, err := scanWork(row)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.ObserveStoreQuery("get_work", start, nil)
		return nil, nil
	}
	if err != nil {
		metrics.ObserveStoreQuery("get_work", start, err)
		return nil, fmt.Errorf("get work %s: %w", workID, err)
	}

	if err := db.attachAuthors(ctx, []*models.Work{work}); err != nil {
		metrics.ObserveStoreQuery("get_work", start, err)
		return nil, err
	}
	metrics.ObserveStoreQuery("get_work", start, nil)
	return work, nil
}

// GetWorks fetches up to limit works in recency order, skipping excludeIDs.
func (db *DB) GetWorks(ctx context.Context, excludeIDs []string, limit int) ([]models.Work, error) {
	start := time.Now()

	query := `SELECT ` + workColumns + ` FROM works w`
	args := make([]any, 0, len(excludeIDs)+1)
	if len(excludeIDs) > 0 {
		query += ` WHERE w.id NOT IN (` + placeholders(len(excludeIDs)) + `)`
		for _, id := range excludeIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY w.created_at DESC LIMIT ?`
	args = append(args, limit)

	works, err := db.queryWorks(ctx, query, args...)
	metrics.ObserveStoreQuery("get_works", start, err)
	return works, err
}

// GetWorksByIDs fetches the works for the given ids. Missing ids are
// silently absent from the result.
func (db *DB) GetWorksByIDs(ctx context.Context, ids []string) ([]models.Work, error) {
	if len(ids) == 0 {
		return []models.Work{}, nil
	}
	start := time.Now()

	query := `SELECT ` + workColumns + ` FROM works w WHERE w.id IN (` + placeholders(len(ids)) + `)`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	works, err := db.queryWorks(ctx, query, args...)
	metrics.ObserveStoreQuery("get_works_by_ids", start, err)
	return works, err
}

// CountWorks returns the catalog size.
func (db *DB) CountWorks(ctx context.Context) (int, error) {
	start := time.Now()
	var count int
	err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM works`).Scan(&count)
	metrics.ObserveStoreQuery("count_works", start, err)
	if err != nil {
		return 0, fmt.Errorf("count works: %w", err)
	}
	return count, nil
}

// GetAuthor fetches a single author, or nil when absent.
func (db *DB) GetAuthor(ctx context.Context, authorID string) (*models.Author, error) {
	start := time.Now()
	var a models.Author
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name FROM authors WHERE id = ?`, authorID).Scan(&a.ID, &a.Name)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.ObserveStoreQuery("get_author", start, nil)
		return nil, nil
	}
	metrics.ObserveStoreQuery("get_author", start, err)
	if err != nil {
		return nil, fmt.Errorf("get author %s: %w", authorID, err)
	}
	return &a, nil
}

// UpsertWork inserts or replaces a catalog work and its author links.
func (db *DB) UpsertWork(ctx context.Context, w *models.Work) error {
	start := time.Now()

	subjects, err := marshalTags(w.Subjects)
	if err != nil {
		return err
	}
	places, err := marshalTags(w.SubjectPlaces)
	if err != nil {
		return err
	}
	times, err := marshalTags(w.SubjectTimes)
	if err != nil {
		return err
	}
	people, err := marshalTags(w.SubjectPeople)
	if err != nil {
		return err
	}
	languages, err := marshalTags(w.OriginalLanguages)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO works
			(id, title, subtitle, description, first_publish_date,
			 subjects, subject_places, subject_times, subject_people, original_languages)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Title, w.Subtitle, w.Description, w.FirstPublishDate,
		subjects, places, times, people, languages)
	if err != nil {
		metrics.ObserveStoreQuery("upsert_work", start, err)
		return fmt.Errorf("upsert work %s: %w", w.ID, err)
	}

	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM work_authors WHERE work_id = ?`, w.ID); err != nil {
		metrics.ObserveStoreQuery("upsert_work", start, err)
		return fmt.Errorf("clear work authors %s: %w", w.ID, err)
	}
	for _, ref := range w.Authors {
		if _, err := db.conn.ExecContext(ctx,
			`INSERT OR REPLACE INTO work_authors (work_id, author_id, role) VALUES (?, ?, ?)`,
			w.ID, ref.AuthorID, ref.Role); err != nil {
			metrics.ObserveStoreQuery("upsert_work", start, err)
			return fmt.Errorf("link author %s: %w", ref.AuthorID, err)
		}
	}

	metrics.ObserveStoreQuery("upsert_work", start, nil)
	return nil
}

// UpsertAuthor inserts or replaces an author.
func (db *DB) UpsertAuthor(ctx context.Context, a *models.Author) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO authors (id, name) VALUES (?, ?)`, a.ID, a.Name)
	metrics.ObserveStoreQuery("upsert_author", start, err)
	if err != nil {
		return fmt.Errorf("upsert author %s: %w", a.ID, err)
	}
	return nil
}

// AppendInteraction appends one interaction to the log. Never idempotent.
func (db *DB) AppendInteraction(ctx context.Context, in models.UserInteraction) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO interactions (id, user_id, work_id, liked, created_at) VALUES (?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.WorkID, in.Liked, in.CreatedAt)
	metrics.ObserveStoreQuery("append_interaction", start, err)
	if err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	return nil
}

// GetUserInteractions returns the user's most recent interactions, newest
// first, up to limit.
func (db *DB) GetUserInteractions(ctx context.Context, userID string, limit int) ([]models.UserInteraction, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, work_id, liked, created_at
		FROM interactions
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		metrics.ObserveStoreQuery("get_user_interactions", start, err)
		return nil, fmt.Errorf("get interactions for %s: %w", userID, err)
	}
	defer rows.Close()

	interactions, err := scanInteractions(rows)
	metrics.ObserveStoreQuery("get_user_interactions", start, err)
	return interactions, err
}

// GetUsersForWorks returns the ids of users who interacted with any of
// the given works, excluding excludeUserID.
func (db *DB) GetUsersForWorks(ctx context.Context, workIDs []string, excludeUserID string) ([]string, error) {
	if len(workIDs) == 0 {
		return []string{}, nil
	}
	start := time.Now()

	query := `SELECT DISTINCT user_id FROM interactions
		WHERE work_id IN (` + placeholders(len(workIDs)) + `) AND user_id != ?`
	args := make([]any, 0, len(workIDs)+1)
	for _, id := range workIDs {
		args = append(args, id)
	}
	args = append(args, excludeUserID)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.ObserveStoreQuery("get_users_for_works", start, err)
		return nil, fmt.Errorf("get users for works: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			metrics.ObserveStoreQuery("get_users_for_works", start, err)
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		users = append(users, userID)
	}
	metrics.ObserveStoreQuery("get_users_for_works", start, rows.Err())
	return users, rows.Err()
}

// GetInteractionsSince returns all interactions created at or after since.
func (db *DB) GetInteractionsSince(ctx context.Context, since time.Time) ([]models.UserInteraction, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, work_id, liked, created_at
		FROM interactions
		WHERE created_at >= ?`, since)
	if err != nil {
		metrics.ObserveStoreQuery("get_interactions_since", start, err)
		return nil, fmt.Errorf("get interactions since %s: %w", since, err)
	}
	defer rows.Close()

	interactions, err := scanInteractions(rows)
	metrics.ObserveStoreQuery("get_interactions_since", start, err)
	return interactions, err
}

func (db *DB) queryWorks(ctx context.Context, query string, args ...any) ([]models.Work, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query works: %w", err)
	}
	defer rows.Close()

	var works []models.Work
	var refs []*models.Work
	for rows.Next() {
		work, err := scanWork(rows)
		if err != nil {
			return nil, err
		}
		works = append(works, *work)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate works: %w", err)
	}

	for i := range works {
		refs = append(refs, &works[i])
	}
	if err := db.attachAuthors(ctx, refs); err != nil {
		return nil, err
	}
	return works, nil
}

// attachAuthors loads author links for a batch of works in one query.
func (db *DB) attachAuthors(ctx context.Context, works []*models.Work) error {
	if len(works) == 0 {
		return nil
	}

	byID := make(map[string]*models.Work, len(works))
	args := make([]any, 0, len(works))
	for _, w := range works {
		byID[w.ID] = w
		args = append(args, w.ID)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT work_id, author_id, role FROM work_authors
		WHERE work_id IN (`+placeholders(len(works))+`)`, args...)
	if err != nil {
		return fmt.Errorf("query work authors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var workID, authorID, role string
		if err := rows.Scan(&workID, &authorID, &role); err != nil {
			return fmt.Errorf("scan work author: %w", err)
		}
		if w := byID[workID]; w != nil {
			w.Authors = append(w.Authors, models.AuthorRef{AuthorID: authorID, Role: role})
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWork(row rowScanner) (*models.Work, error) {
	var w models.Work
	var subjects, places, times, people, languages string
	err := row.Scan(&w.ID, &w.Title, &w.Subtitle, &w.Description, &w.FirstPublishDate,
		&subjects, &places, &times, &people, &languages)
	if err != nil {
		return nil, err
	}

	for _, pair := range []struct {
		raw  string
		dest *[]string
	}{
		{subjects, &w.Subjects},
		{places, &w.SubjectPlaces},
		{times, &w.SubjectTimes},
		{people, &w.SubjectPeople},
		{languages, &w.OriginalLanguages},
	} {
		if err := unmarshalTags(pair.raw, pair.dest); err != nil {
			return nil, fmt.Errorf("decode tags for work %s: %w", w.ID, err)
		}
	}
	return &w, nil
}

func scanInteractions(rows *sql.Rows) ([]models.UserInteraction, error) {
	var interactions []models.UserInteraction
	for rows.Next() {
		var in models.UserInteraction
		if err := rows.Scan(&in.ID, &in.UserID, &in.WorkID, &in.Liked, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		interactions = append(interactions, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}
	return interactions, nil
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}
	return string(data), nil
}

func unmarshalTags(raw string, dest *[]string) error {
	if raw == "" {
		*dest = nil
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return err
	}
	if len(tags) > 0 {
		*dest = tags
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
