// Package survey holds the domain-level operations over the store:
// survey CRUD with cascading delete, validated response persistence,
// and the definition-document import path.
package survey

import (
	"context"
	"errors"
	"time"

	"canvass/export"
	"canvass/model"
	"canvass/store"
)

// ErrSurveyNotFound rejects a response aimed at a survey id that does not
// exist. The store itself does not enforce the relationship.
var ErrSurveyNotFound = errors.New("survey not found")

type Repository struct {
	store *store.Store
}

func NewRepository(st *store.Store) *Repository {
	return &Repository{store: st}
}

// SaveSurvey validates and persists a survey, returning its assigned id.
// The id is also written back to the survey.
func (r *Repository) SaveSurvey(ctx context.Context, survey *model.Survey) (int64, error) {
	if err := survey.Validate(); err != nil {
		return 0, err
	}
	if survey.CreatedAt.IsZero() {
		survey.CreatedAt = time.Now()
	}

	id, err := r.store.PutSurvey(ctx, survey)
	if err != nil {
		return 0, err
	}
	survey.ID = id
	return id, nil
}

// ImportSurvey parses a definition document and saves it as a new survey.
// The document's own identifier is ignored, its createdAt is preserved,
// and a loadedAt timestamp is stamped on. Nothing is persisted when the
// document is malformed.
func (r *Repository) ImportSurvey(ctx context.Context, doc []byte) (*model.Survey, error) {
	survey, err := export.ParseDefinition(doc)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	survey.LoadedAt = &now
	if survey.CreatedAt.IsZero() {
		survey.CreatedAt = now
	}

	if _, err := r.SaveSurvey(ctx, survey); err != nil {
		return nil, err
	}
	return survey, nil
}

func (r *Repository) ListSurveys(ctx context.Context) ([]model.Survey, error) {
	return r.store.ListSurveys(ctx)
}

// GetSurvey returns nil (and no error) for an unknown id.
func (r *Repository) GetSurvey(ctx context.Context, id int64) (*model.Survey, error) {
	return r.store.GetSurvey(ctx, id)
}

// DeleteSurvey removes a survey and all its responses in one transaction,
// so a failure partway leaves no orphans. Deleting an id that never
// existed succeeds as a no-op.
func (r *Repository) DeleteSurvey(ctx context.Context, id int64) error {
	return r.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.DeleteResponsesBySurvey(ctx, id); err != nil {
			return err
		}
		return tx.DeleteSurvey(ctx, id)
	})
}

// SaveResponse stamps and persists an already validated answer set for
// surveyID. Answer validation against required questions is the session
// manager's job; this only checks the owning survey exists.
func (r *Repository) SaveResponse(ctx context.Context, surveyID int64, answers []model.Answer) (int64, error) {
	survey, err := r.store.GetSurvey(ctx, surveyID)
	if err != nil {
		return 0, err
	}
	if survey == nil {
		return 0, ErrSurveyNotFound
	}

	response := &model.Response{
		SurveyID:  surveyID,
		Answers:   answers,
		CreatedAt: time.Now(),
	}
	return r.store.PutResponse(ctx, response)
}

// GetResponses returns a survey's responses ordered by timestamp.
func (r *Repository) GetResponses(ctx context.Context, surveyID int64) ([]model.Response, error) {
	return r.store.ResponsesBySurvey(ctx, surveyID)
}

// GetResponsesInRange narrows GetResponses to a timestamp window; either
// bound may be nil.
func (r *Repository) GetResponsesInRange(ctx context.Context, surveyID int64, from, to *time.Time) ([]model.Response, error) {
	return r.store.ResponsesInRange(ctx, surveyID, from, to)
}

// ClearResponses deletes every response of a survey, leaving the survey
// itself untouched.
func (r *Repository) ClearResponses(ctx context.Context, surveyID int64) error {
	return r.store.DeleteResponsesBySurvey(ctx, surveyID)
}

// DeleteResponse removes a single response by id.
func (r *Repository) DeleteResponse(ctx context.Context, id int64) error {
	return r.store.DeleteResponse(ctx, id)
}
