// Package store is the durable storage layer: a single SQLite file holding
// two collections, surveys and responses. Surveys are indexed by name,
// responses by owning survey and by timestamp. The schema is created
// idempotently on Open.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"canvass/model"
)

type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database file at path and brings
// the schema up to date. A failure to open the underlying engine is
// reported as ErrUnavailable; the caller must not retry.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// db tuning options
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	err = migrateDB(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) ready() error {
	if s == nil || s.db == nil {
		return ErrNotInitialized
	}
	return nil
}

// querier is the common surface of *sql.DB and *sql.Tx, so every operation
// works both standalone and inside WithTx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx gives transactional access to both collections. All operations issued
// through it commit atomically or not at all.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside a single transaction. Any error from fn rolls
// everything back.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	if err := s.ready(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return writeErr("begin_tx", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return writeErr("commit_tx", err)
	}
	return nil
}

// Surveys

func (s *Store) PutSurvey(ctx context.Context, survey *model.Survey) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return putSurvey(ctx, s.db, survey)
}

func (tx *Tx) PutSurvey(ctx context.Context, survey *model.Survey) (int64, error) {
	return putSurvey(ctx, tx.tx, survey)
}

func putSurvey(ctx context.Context, q querier, survey *model.Survey) (int64, error) {
	questions, err := json.Marshal(survey.Questions)
	if err != nil {
		return 0, writeErr("put_survey.marshal_questions", err)
	}

	var loadedAt sql.NullString
	if survey.LoadedAt != nil {
		loadedAt = sql.NullString{String: survey.LoadedAt.Format(time.RFC3339Nano), Valid: true}
	}

	var id int64
	err = q.QueryRowContext(ctx, `
		INSERT INTO survey (name, questions, created_at, loaded_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		survey.Name,
		string(questions),
		survey.CreatedAt.Format(time.RFC3339Nano),
		loadedAt,
	).Scan(&id)
	if err != nil {
		return 0, writeErr("put_survey", err)
	}
	return id, nil
}

// GetSurvey returns nil (and no error) when id is unknown.
func (s *Store) GetSurvey(ctx context.Context, id int64) (*model.Survey, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return getSurvey(ctx, s.db, id)
}

func (tx *Tx) GetSurvey(ctx context.Context, id int64) (*model.Survey, error) {
	return getSurvey(ctx, tx.tx, id)
}

func getSurvey(ctx context.Context, q querier, id int64) (*model.Survey, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, questions, created_at, loaded_at
		FROM survey
		WHERE id = ?`,
		id,
	)

	survey, err := scanSurvey(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, readErr("get_survey", err)
	}
	return survey, nil
}

func (s *Store) ListSurveys(ctx context.Context) ([]model.Survey, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return querySurveys(ctx, s.db, "list_surveys", `
		SELECT id, name, questions, created_at, loaded_at
		FROM survey
		ORDER BY id`)
}

// SurveysByName looks surveys up through the name index. Names are not
// unique, so this may return more than one.
func (s *Store) SurveysByName(ctx context.Context, name string) ([]model.Survey, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return querySurveys(ctx, s.db, "surveys_by_name", `
		SELECT id, name, questions, created_at, loaded_at
		FROM survey
		WHERE name = ?
		ORDER BY id`,
		name)
}

func querySurveys(ctx context.Context, q querier, op, query string, args ...any) ([]model.Survey, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, readErr(op, err)
	}
	defer rows.Close()

	surveys := []model.Survey{}
	for rows.Next() {
		survey, err := scanSurvey(rows.Scan)
		if err != nil {
			return nil, readErr(op+".scan", err)
		}
		surveys = append(surveys, *survey)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(op, err)
	}
	return surveys, nil
}

func scanSurvey(scan func(dest ...any) error) (*model.Survey, error) {
	var (
		survey    model.Survey
		questions string
		createdAt string
		loadedAt  sql.NullString
	)
	err := scan(&survey.ID, &survey.Name, &questions, &createdAt, &loadedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(questions), &survey.Questions); err != nil {
		return nil, err
	}
	if survey.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	if loadedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, loadedAt.String)
		if err != nil {
			return nil, err
		}
		survey.LoadedAt = &t
	}
	return &survey, nil
}

// DeleteSurvey removes a survey by key. Deleting an absent key is a no-op.
func (s *Store) DeleteSurvey(ctx context.Context, id int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	return deleteSurvey(ctx, s.db, id)
}

func (tx *Tx) DeleteSurvey(ctx context.Context, id int64) error {
	return deleteSurvey(ctx, tx.tx, id)
}

func deleteSurvey(ctx context.Context, q querier, id int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM survey WHERE id = ?`, id)
	return writeErr("delete_survey", err)
}

// Responses

func (s *Store) PutResponse(ctx context.Context, response *model.Response) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return putResponse(ctx, s.db, response)
}

func (tx *Tx) PutResponse(ctx context.Context, response *model.Response) (int64, error) {
	return putResponse(ctx, tx.tx, response)
}

func putResponse(ctx context.Context, q querier, response *model.Response) (int64, error) {
	answers, err := json.Marshal(response.Answers)
	if err != nil {
		return 0, writeErr("put_response.marshal_answers", err)
	}

	var id int64
	err = q.QueryRowContext(ctx, `
		INSERT INTO response (survey_id, answers, created_at)
		VALUES (?, ?, ?)
		RETURNING id`,
		response.SurveyID,
		string(answers),
		response.CreatedAt.Format(time.RFC3339Nano),
	).Scan(&id)
	if err != nil {
		return 0, writeErr("put_response", err)
	}
	return id, nil
}

// ResponsesBySurvey returns all responses owned by surveyID through the
// survey index, oldest first.
func (s *Store) ResponsesBySurvey(ctx context.Context, surveyID int64) ([]model.Response, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return queryResponses(ctx, s.db, "responses_by_survey", `
		SELECT id, survey_id, answers, created_at
		FROM response
		WHERE survey_id = ?
		ORDER BY created_at, id`,
		surveyID)
}

// ResponsesInRange filters a survey's responses by timestamp. Either bound
// may be nil to leave that side open.
func (s *Store) ResponsesInRange(ctx context.Context, surveyID int64, from, to *time.Time) ([]model.Response, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	query := `
		SELECT id, survey_id, answers, created_at
		FROM response
		WHERE survey_id = ?`
	args := []any{surveyID}
	if from != nil {
		query += ` AND created_at >= ?`
		args = append(args, from.Format(time.RFC3339Nano))
	}
	if to != nil {
		query += ` AND created_at <= ?`
		args = append(args, to.Format(time.RFC3339Nano))
	}
	query += ` ORDER BY created_at, id`

	return queryResponses(ctx, s.db, "responses_in_range", query, args...)
}

func queryResponses(ctx context.Context, q querier, op, query string, args ...any) ([]model.Response, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, readErr(op, err)
	}
	defer rows.Close()

	responses := []model.Response{}
	for rows.Next() {
		var (
			response  model.Response
			answers   string
			createdAt string
		)
		err = rows.Scan(&response.ID, &response.SurveyID, &answers, &createdAt)
		if err != nil {
			return nil, readErr(op+".scan", err)
		}
		if err := json.Unmarshal([]byte(answers), &response.Answers); err != nil {
			return nil, readErr(op+".parse_answers", err)
		}
		if response.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, readErr(op+".parse_time", err)
		}
		responses = append(responses, response)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(op, err)
	}
	return responses, nil
}

func (s *Store) DeleteResponse(ctx context.Context, id int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM response WHERE id = ?`, id)
	return writeErr("delete_response", err)
}

func (s *Store) DeleteResponsesBySurvey(ctx context.Context, surveyID int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	return deleteResponsesBySurvey(ctx, s.db, surveyID)
}

func (tx *Tx) DeleteResponsesBySurvey(ctx context.Context, surveyID int64) error {
	return deleteResponsesBySurvey(ctx, tx.tx, surveyID)
}

func deleteResponsesBySurvey(ctx context.Context, q querier, surveyID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM response WHERE survey_id = ?`, surveyID)
	return writeErr("delete_responses", err)
}
