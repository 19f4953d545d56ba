// Package records defines the prompt and variable records managed by promptdeck
// together with their validation rules and the shared error taxonomy.
package records

import (
	"time"
	"unicode/utf8"
)

// Kind identifies a resource kind. It doubles as the URL segment of the HTTP API
// and as the resource kind of pagination partitions.
type Kind string

const (
	// KindPrompts addresses prompt records.
	KindPrompts Kind = "prompts"

	// KindVariables addresses variable records.
	KindVariables Kind = "variables"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindPrompts || k == KindVariables
}

// Field length limits.
const (
	MaxLabelLength   = 100
	MaxContentLength = 4000
	MaxValueLength   = 1000
)

// Prompt is a reusable prompt text. Content may reference variables with {{label}}.
type Prompt struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Label     string     `json:"label"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// Validate checks the user supplied fields.
func (p Prompt) Validate() error {
	if err := checkLength("label", p.Label, MaxLabelLength); err != nil {
		return err
	}
	return checkLength("content", p.Content, MaxContentLength)
}

// PromptSummary is the minified prompt returned to browser extensions.
type PromptSummary struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Variable is a named value that prompts insert as {{label}}.
type Variable struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Label     string     `json:"label"`
	Value     string     `json:"value"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// Validate checks the user supplied fields.
func (v Variable) Validate() error {
	if err := checkLength("label", v.Label, MaxLabelLength); err != nil {
		return err
	}
	return checkLength("value", v.Value, MaxValueLength)
}

// ErrorLog is a persisted handler failure.
type ErrorLog struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	URLPath      string    `json:"url_path"`
	FunctionName string    `json:"function_name"`
	ErrorMessage string    `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
}

func checkLength(field, value string, max int) error {
	n := utf8.RuneCountInString(value)
	switch {
	case n == 0:
		return &ValidationError{Field: field, Message: field + " is required"}
	case n > max:
		return &ValidationError{Field: field, Message: field + " is too long"}
	}
	return nil
}
