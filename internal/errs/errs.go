// Package errs defines the failure taxonomy shared by the planner, the
// transaction manager and the migration loader.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindMigrationScript Kind = "migration_script"
	KindIntentConflict  Kind = "intent_conflict"
	KindParse           Kind = "parse"
	KindPathEscape      Kind = "path_escape"
	KindTransaction     Kind = "transaction"
	KindIndexIntegrity  Kind = "index_integrity"
)

// Error carries a Kind plus whatever location data the failing stage had.
type Error struct {
	Kind    Kind
	Message string
	Path    string
	FQN     string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Path != "" {
		fmt.Fprintf(&b, " (path %s)", e.Path)
	}
	if e.FQN != "" {
		fmt.Fprintf(&b, " (fqn %s)", e.FQN)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind so callers can write
// errors.Is(err, &errs.Error{Kind: errs.KindParse}).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

func MigrationScript(path string, err error) *Error {
	return &Error{Kind: KindMigrationScript, Message: "migration script failed", Path: path, Err: err}
}

func IntentConflict(msg string, args ...any) *Error {
	return &Error{Kind: KindIntentConflict, Message: fmt.Sprintf(msg, args...)}
}

func Parse(path string, err error) *Error {
	return &Error{Kind: KindParse, Message: "cannot parse file", Path: path, Err: err}
}

func PathEscape(path string) *Error {
	return &Error{Kind: KindPathEscape, Message: "path escapes workspace root", Path: path}
}

func Transaction(path string, err error) *Error {
	return &Error{Kind: KindTransaction, Message: "commit failed and was rolled back", Path: path, Err: err}
}

func IndexIntegrity(details []string) *Error {
	return &Error{
		Kind:    KindIndexIntegrity,
		Message: fmt.Sprintf("%d dangling references", len(details)),
		Details: details,
	}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
