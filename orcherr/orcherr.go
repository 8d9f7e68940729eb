// Package orcherr defines the orchestrator's error kinds and a carrier type
// that attaches structured context (stage, session, scenario) to a wrapped
// cause, so callers can branch on Kind without string-matching messages.
package orcherr

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind string

const (
	// InvalidInput marks a missing or malformed required argument.
	InvalidInput Kind = "invalid_input"
	// InvalidDefinition marks a scenario file that fails schema or business
	// rules during load, validation, or build.
	InvalidDefinition Kind = "invalid_definition"
	// NotFound marks an unknown scenario or stage.
	NotFound Kind = "not_found"
	// UnresolvedPlaceholder marks a `{{…}}`/`{…}` marker surviving Populate.
	UnresolvedPlaceholder Kind = "unresolved_placeholder"
	// ToolMissing marks a model-requested function with no registered
	// implementation.
	ToolMissing Kind = "tool_missing"
	// ProviderError marks a provider-transport failure after exhausting
	// retries, or a tool-call loop exceeding its configured round limit.
	ProviderError Kind = "provider_error"
	// StorageUnavailable marks a backing store refusing a write.
	StorageUnavailable Kind = "storage_unavailable"
	// Cancelled marks an operation aborted by context cancellation.
	Cancelled Kind = "cancelled"
)

// Error wraps a cause with a Kind and structured fields (stage name, session
// id, scenario name) attached at the boundary where the failure occurred.
type Error struct {
	Kind     Kind
	Message  string
	Stage    string
	Session  string
	scenario string
	Cause    error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	ctx := ""
	if e.Scenario() != "" {
		ctx += fmt.Sprintf(" scenario=%s", e.Scenario())
	}
	if e.Stage != "" {
		ctx += fmt.Sprintf(" stage=%s", e.Stage)
	}
	if e.Session != "" {
		ctx += fmt.Sprintf(" session=%s", e.Session)
	}
	return fmt.Sprintf("%s: %s%s", e.Kind, msg, ctx)
}

func (e *Error) Unwrap() error { return e.Cause }

// Scenario returns the scenario name attached via WithScenarioName, if any.
func (e *Error) Scenario() string { return e.scenario }

// New constructs an Error of the given kind wrapping cause.
func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// Newf constructs an Error of the given kind with a formatted message and no
// wrapped cause.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithStage attaches the originating stage name.
func (e *Error) WithStage(stage string) *Error {
	e.Stage = stage
	return e
}

// WithSession attaches the originating session id.
func (e *Error) WithSession(session string) *Error {
	e.Session = session
	return e
}

// WithScenarioName attaches the originating scenario name.
func (e *Error) WithScenarioName(name string) *Error {
	e.scenario = name
	return e
}

// Is reports whether err (or any error in its Unwrap chain) is an *Error of
// the given Kind.
func Is(err error, kind Kind) bool {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind == kind
	}
	return false
}
