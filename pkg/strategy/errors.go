package strategy

import (
	"errors"
	"fmt"
)

type FailureKind string

const (
	MalformedPayload   FailureKind = "MalformedPayload"
	EmptyPayload       FailureKind = "EmptyPayload"
	UnparsableJSON     FailureKind = "UnparsableJson"
	IncompleteStrategy FailureKind = "IncompleteStrategy"
)

var (
	ErrNotFound      = errors.New("strategy not found")
	ErrInvalidRecord = errors.New("invalid strategy record")
)

// ParseFailure is returned by value from the deserializer. EmptyPayload is
// the benign "nothing saved yet" sentinel.
type ParseFailure struct {
	Kind    FailureKind
	Label   string
	Message string
	Offset  int    // byte offset of the decode error, -1 when not applicable
	Window  string // text around Offset
}

func (f *ParseFailure) Error() string {
	if f.Offset >= 0 {
		return fmt.Sprintf("[%s] %s: %s (offset %d near %q)", f.Label, f.Kind, f.Message, f.Offset, f.Window)
	}
	return fmt.Sprintf("[%s] %s: %s", f.Label, f.Kind, f.Message)
}

func (f *ParseFailure) Benign() bool {
	return f.Kind == EmptyPayload
}

// Details flattens the failure for structured logging.
func (f *ParseFailure) Details() map[string]interface{} {
	d := map[string]interface{}{
		"kind":    string(f.Kind),
		"label":   f.Label,
		"message": f.Message,
	}
	if f.Offset >= 0 {
		d["offset"] = f.Offset
		d["window"] = f.Window
	}
	return d
}

func newFailure(kind FailureKind, label, message string) *ParseFailure {
	return &ParseFailure{Kind: kind, Label: label, Message: message, Offset: -1}
}
