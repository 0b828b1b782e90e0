package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-quiz/internal/quiz"
)

const dbTimeout = 5 * time.Second

// Schema holds the idempotent DDL for the library tables, applied with
// database.DB.Migrate at startup.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS saved_quizzes (
		id          UUID PRIMARY KEY,
		owner_id    TEXT NOT NULL,
		name        TEXT NOT NULL,
		grade       TEXT NOT NULL,
		subject     TEXT NOT NULL,
		chapter     TEXT NOT NULL,
		questions   JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS saved_quizzes_owner_idx ON saved_quizzes (owner_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS workflow_events (
		id          BIGSERIAL PRIMARY KEY,
		session_id  TEXT NOT NULL,
		user_id     TEXT NOT NULL DEFAULT '',
		event_type  TEXT NOT NULL,
		data        JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS workflow_events_session_idx ON workflow_events (session_id, created_at)`,
}

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed quiz library.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Save(ownerID string, q *quiz.Quiz) (SavedQuiz, error) {
	if err := validateSave(ownerID, q); err != nil {
		return SavedQuiz{}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return SavedQuiz{}, fmt.Errorf("marshal questions: %w", err)
	}

	saved := SavedQuiz{ID: newID(), OwnerID: ownerID, Quiz: *q.Clone()}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO saved_quizzes (id, owner_id, name, grade, subject, chapter, questions)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7::jsonb)
		 RETURNING created_at`,
		saved.ID,
		ownerID,
		q.Name,
		q.Grade,
		q.Subject,
		q.Chapter,
		string(questions),
	).Scan(&saved.CreatedAt)
	if err != nil {
		return SavedQuiz{}, fmt.Errorf("insert saved quiz: %w", err)
	}
	return saved, nil
}

func (s *PostgresStore) Get(ownerID, id string) (*SavedQuiz, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	saved := SavedQuiz{OwnerID: ownerID}
	var questions []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, name, grade, subject, chapter, questions, created_at
		 FROM saved_quizzes
		 WHERE id::text = $1 AND owner_id = $2`,
		id,
		ownerID,
	).Scan(
		&saved.ID,
		&saved.Quiz.Name,
		&saved.Quiz.Grade,
		&saved.Quiz.Subject,
		&saved.Quiz.Chapter,
		&questions,
		&saved.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("query saved quiz: %w", err)
	}
	if err := json.Unmarshal(questions, &saved.Quiz.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return &saved, nil
}

// List returns the owner's quizzes, newest first.
func (s *PostgresStore) List(ownerID string) ([]Summary, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, name, grade, subject, chapter, jsonb_array_length(questions), created_at
		 FROM saved_quizzes
		 WHERE owner_id = $1
		 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query saved quizzes: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(
			&sum.ID,
			&sum.Name,
			&sum.Grade,
			&sum.Subject,
			&sum.Chapter,
			&sum.QuestionCount,
			&sum.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan saved quiz: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved quizzes: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Count(ownerID string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	var n int
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM saved_quizzes WHERE owner_id = $1`,
		ownerID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count saved quizzes: %w", err)
	}
	return n, nil
}
