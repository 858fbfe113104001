// Package session tracks the response cards of a conduction session:
// one in-memory draft per respondent currently filling out the active
// survey. Nothing is persisted until a card passes required-question
// validation and commits through the repository.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"canvass/model"
	"canvass/survey"
)

var ErrNoCard = errors.New("no such card")

// ValidationError lists the 0-based indexes of required questions left
// unanswered on a commit attempt. The card stays open and nothing is
// persisted.
type ValidationError struct {
	Questions []int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("required questions unanswered: %v", e.Questions)
}

// Card is one respondent's draft. Answers is indexed by question
// position; Invalid holds the offenders of the last failed commit.
type Card struct {
	ID      uuid.UUID      `json:"id"`
	Answers []model.Answer `json:"answers"`
	Invalid []int          `json:"invalid,omitempty"`
}

// Session is the collection of open cards for one survey's conduction,
// plus the commit counter scoped to it.
type Session struct {
	mu        sync.Mutex
	repo      *survey.Repository
	survey    model.Survey
	cards     []*Card
	committed int
}

// Manager owns at most one active session. Starting a new one discards
// whatever cards the previous session still held and resets the counter.
type Manager struct {
	mu     sync.Mutex
	repo   *survey.Repository
	active *Session
}

func NewManager(repo *survey.Repository) *Manager {
	return &Manager{repo: repo}
}

func (m *Manager) Start(s model.Survey) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = &Session{repo: m.repo, survey: s}
	return m.active
}

// Active returns the running session, or nil when none has started.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// End drops the active session and its open cards.
func (m *Manager) End() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = nil
}

func (s *Session) Survey() model.Survey {
	return s.survey
}

// AddCard opens a blank card for a new respondent.
func (s *Session) AddCard() *Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	card := &Card{
		ID:      uuid.New(),
		Answers: make([]model.Answer, len(s.survey.Questions)),
	}
	s.cards = append(s.cards, card)
	return card
}

func (s *Session) Card(id uuid.UUID) (*Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	card := s.find(id)
	return card, card != nil
}

func (s *Session) Cards() []*Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards := make([]*Card, len(s.cards))
	copy(cards, s.cards)
	return cards
}

func (s *Session) find(id uuid.UUID) *Card {
	for _, card := range s.cards {
		if card.ID == id {
			return card
		}
	}
	return nil
}

func (s *Session) remove(id uuid.UUID) {
	for i, card := range s.cards {
		if card.ID == id {
			s.cards = append(s.cards[:i], s.cards[i+1:]...)
			return
		}
	}
}

// SetAnswer records a draft answer on an open card.
func (s *Session) SetAnswer(id uuid.UUID, question int, answer model.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	card := s.find(id)
	if card == nil {
		return ErrNoCard
	}
	if question < 0 || question >= len(card.Answers) {
		return fmt.Errorf("question index %d out of range", question)
	}
	card.Answers[question] = answer
	return nil
}

// Discard drops a card without persisting anything. The draft is lost.
func (s *Session) Discard(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.find(id) == nil {
		return ErrNoCard
	}
	s.remove(id)
	return nil
}

// Commit validates a card against the survey's required questions and, if
// every one is answered, persists exactly one response and removes the
// card. On a validation failure the card stays open with its offending
// questions flagged and nothing is persisted: the whole card commits or
// none of it does.
func (s *Session) Commit(ctx context.Context, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	card := s.find(id)
	if card == nil {
		return 0, ErrNoCard
	}

	var invalid []int
	for i, q := range s.survey.Questions {
		if q.Required && card.Answers[i].Empty() {
			invalid = append(invalid, i)
		}
	}
	if len(invalid) > 0 {
		card.Invalid = invalid
		return 0, &ValidationError{Questions: invalid}
	}
	card.Invalid = nil

	responseID, err := s.repo.SaveResponse(ctx, s.survey.ID, card.Answers)
	if err != nil {
		return 0, err
	}

	s.remove(id)
	s.committed++
	return responseID, nil
}

// Committed is the number of cards committed since this session started.
// Discards never decrement it.
func (s *Session) Committed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed
}
