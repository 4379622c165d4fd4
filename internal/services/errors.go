package services

import (
	"errors"
	"fmt"
)

var (
	ErrFileNotFound      = errors.New("file not found")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrDecode            = errors.New("unable to decode text as UTF-8")
	ErrExtractionFailure = errors.New("failed to extract text")

	ErrQuotaExhausted = errors.New("quota exhausted")
	ErrBatchAborted   = errors.New("batch aborted")
	ErrInvalidBatch   = errors.New("invalid batch")
)

// ExtractionError reports why a document could not be turned into text.
type ExtractionError struct {
	Kind error
	Name string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Name, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Name, e.Kind)
}

func (e *ExtractionError) Is(target error) bool {
	return target == e.Kind
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

type LLMErrorKind string

const (
	LLMQuotaExceeded      LLMErrorKind = "quota_exceeded"
	LLMInvalidCredentials LLMErrorKind = "invalid_credentials"
	LLMOther              LLMErrorKind = "other"
)

// LLMError is the classified failure of a single generation call.
type LLMError struct {
	Kind    LLMErrorKind
	Message string
	Err     error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("llm %s: %s", e.Kind, e.Message)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// LLMErrorKindOf returns the kind of a classified LLM error, or "" when err
// does not carry one.
func LLMErrorKindOf(err error) LLMErrorKind {
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return llmErr.Kind
	}
	return ""
}

// truncateMessage shortens msg to max runes, marking the cut with "...".
func truncateMessage(msg string, max int) string {
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max]) + "..."
}
