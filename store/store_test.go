package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvass/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func testSurvey(name string) *model.Survey {
	return &model.Survey{
		Name:      name,
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Questions: []model.Question{
			{Type: model.QuestionFreeform, Text: "Comments"},
			{Type: model.QuestionMultiple, Text: "Rating", Required: true, Choices: []string{"Good", "Bad"}},
		},
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sqlite")

	st, err := Open(path)
	require.NoError(t, err)

	_, err = st.PutSurvey(context.Background(), testSurvey("first"))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	// reopening an existing database leaves schema and data alone
	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()

	surveys, err := st.ListSurveys(context.Background())
	require.NoError(t, err)
	require.Len(t, surveys, 1)
	assert.Equal(t, "first", surveys[0].Name)
}

func TestSurveyRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	survey := testSurvey("Feedback")
	loadedAt := time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC)
	survey.LoadedAt = &loadedAt

	id, err := st.PutSurvey(ctx, survey)
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := st.GetSurvey(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, survey.Name, got.Name)
	assert.Equal(t, survey.Questions, got.Questions)
	assert.True(t, survey.CreatedAt.Equal(got.CreatedAt))
	require.NotNil(t, got.LoadedAt)
	assert.True(t, loadedAt.Equal(*got.LoadedAt))
}

func TestGetSurveyAbsent(t *testing.T) {
	st := openTestStore(t)

	got, err := st.GetSurvey(context.Background(), 12345)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSurveysByName(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := st.PutSurvey(ctx, testSurvey("Feedback"))
	require.NoError(t, err)
	_, err = st.PutSurvey(ctx, testSurvey("Feedback"))
	require.NoError(t, err)
	_, err = st.PutSurvey(ctx, testSurvey("Other"))
	require.NoError(t, err)

	matches, err := st.SurveysByName(ctx, "Feedback")
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	none, err := st.SurveysByName(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestResponsesBySurveyOrdering(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	surveyId, err := st.PutSurvey(ctx, testSurvey("Feedback"))
	require.NoError(t, err)

	base := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	// insert out of timestamp order
	for _, offset := range []time.Duration{2 * time.Hour, 0, time.Hour} {
		_, err = st.PutResponse(ctx, &model.Response{
			SurveyID:  surveyId,
			Answers:   []model.Answer{{Text: "x"}, {Text: "Good"}},
			CreatedAt: base.Add(offset),
		})
		require.NoError(t, err)
	}

	responses, err := st.ResponsesBySurvey(ctx, surveyId)
	require.NoError(t, err)
	require.Len(t, responses, 3)
	for i := 1; i < len(responses); i++ {
		assert.False(t, responses[i].CreatedAt.Before(responses[i-1].CreatedAt))
	}
}

func TestResponsesInRange(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	surveyId, err := st.PutSurvey(ctx, testSurvey("Feedback"))
	require.NoError(t, err)

	base := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err = st.PutResponse(ctx, &model.Response{
			SurveyID:  surveyId,
			Answers:   []model.Answer{{}, {Text: "Good"}},
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	from := base.Add(30 * time.Minute)
	to := base.Add(90 * time.Minute)

	responses, err := st.ResponsesInRange(ctx, surveyId, &from, &to)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.True(t, responses[0].CreatedAt.Equal(base.Add(time.Hour)))

	responses, err = st.ResponsesInRange(ctx, surveyId, &from, nil)
	require.NoError(t, err)
	assert.Len(t, responses, 2)
}

func TestDeleteIsIdempotent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	assert.NoError(t, st.DeleteSurvey(ctx, 999))
	assert.NoError(t, st.DeleteResponse(ctx, 999))
	assert.NoError(t, st.DeleteResponsesBySurvey(ctx, 999))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	surveyId, err := st.PutSurvey(ctx, testSurvey("Feedback"))
	require.NoError(t, err)
	_, err = st.PutResponse(ctx, &model.Response{
		SurveyID:  surveyId,
		Answers:   []model.Answer{{}, {Text: "Good"}},
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = st.WithTx(ctx, func(tx *Tx) error {
		if err := tx.DeleteResponsesBySurvey(ctx, surveyId); err != nil {
			return err
		}
		if err := tx.DeleteSurvey(ctx, surveyId); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// nothing committed
	got, err := st.GetSurvey(ctx, surveyId)
	require.NoError(t, err)
	assert.NotNil(t, got)

	responses, err := st.ResponsesBySurvey(ctx, surveyId)
	require.NoError(t, err)
	assert.Len(t, responses, 1)
}

func TestClosedStoreFailsFast(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.Close())
	ctx := context.Background()

	_, err := st.PutSurvey(ctx, testSurvey("Feedback"))
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = st.ListSurveys(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)

	err = st.WithTx(ctx, func(tx *Tx) error { return nil })
	assert.ErrorIs(t, err, ErrNotInitialized)
}
