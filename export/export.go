// Package export turns surveys and their responses into transportable
// documents: a JSON definition that round-trips through the import path,
// and tabular renditions (CSV, XLSX) of collected responses. Everything
// here is a pure transformation; no I/O.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"canvass/model"
)

// ErrInvalidFormat rejects a malformed definition document before anything
// touches the store.
var ErrInvalidFormat = errors.New("invalid survey definition")

// definition is the wire shape of a survey definition document. Questions
// stays raw so a non-sequence value can be told apart from a bad element.
type definition struct {
	ID        int64           `json:"id,omitempty"`
	Name      string          `json:"name"`
	Questions json.RawMessage `json:"questions"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`
	LoadedAt  *time.Time      `json:"loadedAt,omitempty"`
}

// MarshalDefinition renders a survey as an indented, re-importable JSON
// document mirroring the survey field for field.
func MarshalDefinition(survey model.Survey) ([]byte, error) {
	return json.MarshalIndent(survey, "", "  ")
}

// ParseDefinition parses a definition document into a survey ready for
// saving. The document's identifier is discarded: the store assigns a new
// one on save. Fails with ErrInvalidFormat when name is absent or blank,
// or questions is absent or not a sequence of question objects.
func ParseDefinition(data []byte) (*model.Survey, error) {
	var def definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	if strings.TrimSpace(def.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be blank", ErrInvalidFormat)
	}
	if len(def.Questions) == 0 {
		return nil, fmt.Errorf("%w: questions missing", ErrInvalidFormat)
	}

	var questions []model.Question
	if err := json.Unmarshal(def.Questions, &questions); err != nil {
		return nil, fmt.Errorf("%w: questions is not a sequence: %v", ErrInvalidFormat, err)
	}

	survey := &model.Survey{
		Name:      def.Name,
		Questions: questions,
	}
	if def.CreatedAt != nil {
		survey.CreatedAt = *def.CreatedAt
	}
	return survey, nil
}

// ResponsesCSV renders responses as UTF-8 comma-separated text: a header
// row, then one row per response. Every field is quoted so embedded commas,
// quotes and newlines survive a round trip through any CSV reader.
func ResponsesCSV(survey model.Survey, responses []model.Response) []byte {
	var b strings.Builder

	writeRow(&b, headerRow(survey))
	for _, response := range responses {
		writeRow(&b, responseRow(survey, response))
	}

	return []byte(b.String())
}

func writeRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}

// headerRow is two fixed columns followed by one per question, labeled
// with its 1-based position.
func headerRow(survey model.Survey) []string {
	header := []string{"Response ID", "Timestamp"}
	for i, q := range survey.Questions {
		header = append(header, fmt.Sprintf("%d. %s", i+1, q.Text))
	}
	return header
}

func responseRow(survey model.Survey, response model.Response) []string {
	row := []string{
		fmt.Sprintf("%d", response.ID),
		response.CreatedAt.Format(time.RFC3339),
	}
	for i := range survey.Questions {
		var answer model.Answer
		if i < len(response.Answers) {
			answer = response.Answers[i]
		}
		row = append(row, answer.Cell())
	}
	return row
}
