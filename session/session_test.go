package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvass/model"
	"canvass/store"
	"canvass/survey"
)

func newTestManager(t *testing.T) (*Manager, *survey.Repository) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	repo := survey.NewRepository(st)
	return NewManager(repo), repo
}

func startFeedbackSession(t *testing.T) (*Session, *survey.Repository, *model.Survey) {
	t.Helper()

	mgr, repo := newTestManager(t)
	s := &model.Survey{
		Name: "Feedback",
		Questions: []model.Question{
			{Type: model.QuestionFreeform, Text: "Comments"},
			{Type: model.QuestionMultiple, Text: "Rating", Required: true, Choices: []string{"Good", "Bad"}},
		},
	}
	_, err := repo.SaveSurvey(context.Background(), s)
	require.NoError(t, err)

	return mgr.Start(*s), repo, s
}

func TestCommitRejectsMissingRequiredAnswer(t *testing.T) {
	sess, repo, s := startFeedbackSession(t)
	ctx := context.Background()

	card := sess.AddCard()
	// Comments answered, required Rating left blank
	require.NoError(t, sess.SetAnswer(card.ID, 0, model.Answer{Text: "nice"}))

	_, err := sess.Commit(ctx, card.ID)
	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, []int{1}, invalid.Questions)

	// card stays open with the offender flagged, nothing persisted
	kept, ok := sess.Card(card.ID)
	require.True(t, ok)
	assert.Equal(t, []int{1}, kept.Invalid)
	assert.Equal(t, 0, sess.Committed())

	responses, err := repo.GetResponses(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, responses)
}

func TestCommitPersistsExactlyOneResponse(t *testing.T) {
	sess, repo, s := startFeedbackSession(t)
	ctx := context.Background()

	card := sess.AddCard()
	// Comments not required, blank is fine
	require.NoError(t, sess.SetAnswer(card.ID, 1, model.Answer{Text: "Good"}))

	responseId, err := sess.Commit(ctx, card.ID)
	require.NoError(t, err)
	assert.NotZero(t, responseId)

	// card removed, counter bumped
	_, ok := sess.Card(card.ID)
	assert.False(t, ok)
	assert.Equal(t, 1, sess.Committed())

	responses, err := repo.GetResponses(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, "Good", responses[0].Answers[1].Text)
	assert.True(t, responses[0].Answers[0].Empty())
}

func TestCommitAfterFixingValidation(t *testing.T) {
	sess, _, _ := startFeedbackSession(t)
	ctx := context.Background()

	card := sess.AddCard()
	_, err := sess.Commit(ctx, card.ID)
	require.Error(t, err)

	require.NoError(t, sess.SetAnswer(card.ID, 1, model.Answer{Selections: []string{"Good", "Bad"}}))

	_, err = sess.Commit(ctx, card.ID)
	require.NoError(t, err)

	// the validation annotation does not outlive the fix
	assert.Empty(t, sess.Cards())
	assert.Equal(t, 1, sess.Committed())
}

func TestDiscardDropsDraftWithoutPersisting(t *testing.T) {
	sess, repo, s := startFeedbackSession(t)
	ctx := context.Background()

	card := sess.AddCard()
	require.NoError(t, sess.SetAnswer(card.ID, 1, model.Answer{Text: "Good"}))

	require.NoError(t, sess.Discard(card.ID))
	assert.Empty(t, sess.Cards())
	assert.Equal(t, 0, sess.Committed())

	responses, err := repo.GetResponses(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, responses)

	assert.ErrorIs(t, sess.Discard(card.ID), ErrNoCard)
}

func TestCommittedCounterScope(t *testing.T) {
	mgr, repo := newTestManager(t)
	ctx := context.Background()

	s := &model.Survey{
		Name:      "Quick",
		Questions: []model.Question{{Type: model.QuestionFreeform, Text: "Anything"}},
	}
	_, err := repo.SaveSurvey(ctx, s)
	require.NoError(t, err)

	sess := mgr.Start(*s)
	for i := 0; i < 3; i++ {
		card := sess.AddCard()
		require.NoError(t, sess.SetAnswer(card.ID, 0, model.Answer{Text: "hi"}))
		_, err := sess.Commit(ctx, card.ID)
		require.NoError(t, err)
		assert.Equal(t, i+1, sess.Committed())
	}

	// a new conduction session starts the count over
	sess = mgr.Start(*s)
	assert.Equal(t, 0, sess.Committed())
}

func TestUnknownCard(t *testing.T) {
	sess, _, _ := startFeedbackSession(t)

	err := sess.SetAnswer(uuid.New(), 0, model.Answer{Text: "x"})
	assert.ErrorIs(t, err, ErrNoCard)

	_, err = sess.Commit(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNoCard)
}

func TestSetAnswerIndexOutOfRange(t *testing.T) {
	sess, _, _ := startFeedbackSession(t)
	card := sess.AddCard()

	assert.Error(t, sess.SetAnswer(card.ID, -1, model.Answer{Text: "x"}))
	assert.Error(t, sess.SetAnswer(card.ID, 2, model.Answer{Text: "x"}))
}
