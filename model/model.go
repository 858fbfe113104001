package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	QuestionFreeform = "freeform"
	QuestionMultiple = "multiple"
)

type Survey struct {
	ID        int64      `json:"id,omitempty"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
	CreatedAt time.Time  `json:"createdAt"`
	LoadedAt  *time.Time `json:"loadedAt,omitempty"`
}

type Question struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Required bool   `json:"required"`
	// Choices and AllowMultiple only apply to "multiple" questions.
	Choices       []string `json:"choices,omitempty"`
	AllowMultiple bool     `json:"allowMultiple,omitempty"`
}

// Answer holds one question's answer: Text for freeform and single-select
// questions, Selections for multi-select. A zero Answer means "not answered".
type Answer struct {
	Text       string   `json:"text,omitempty"`
	Selections []string `json:"selections,omitempty"`
}

// Response is append-only: once saved it is never mutated.
// Answers is ordered by question position.
type Response struct {
	ID        int64     `json:"id"`
	SurveyID  int64     `json:"surveyId"`
	Answers   []Answer  `json:"answers"`
	CreatedAt time.Time `json:"createdAt"`
}

func (a Answer) Empty() bool {
	return strings.TrimSpace(a.Text) == "" && len(a.Selections) == 0
}

// Cell renders the answer as a single export cell, joining multiple
// selections with "; ".
func (a Answer) Cell() string {
	if len(a.Selections) > 0 {
		return strings.Join(a.Selections, "; ")
	}
	return a.Text
}

// Validate checks a survey is fit to save. Validation is all or nothing:
// one invalid question rejects the whole survey.
func (s Survey) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("survey name must not be blank")
	}
	if len(s.Questions) == 0 {
		return errors.New("survey must have at least one question")
	}
	for i, q := range s.Questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}

func (q Question) Validate() error {
	switch q.Type {
	case QuestionFreeform, QuestionMultiple:
	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}
	if strings.TrimSpace(q.Text) == "" {
		return errors.New("text must not be empty")
	}
	if q.Type == QuestionMultiple {
		if len(q.Choices) == 0 {
			return errors.New("multiple choice question needs at least one choice")
		}
		for _, c := range q.Choices {
			if strings.TrimSpace(c) == "" {
				return errors.New("choice label must not be empty")
			}
		}
	}
	return nil
}
