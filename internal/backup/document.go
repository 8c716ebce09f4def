package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sadopc/reportory/internal/store"
)

// FormatVersion is written to every exported document.
const FormatVersion = "1.0"

// ErrMalformed marks a backup document that cannot be imported. It always
// arrives wrapped in a store.Error of KindValidation.
var ErrMalformed = errors.New("malformed backup document")

// Document is the on-disk backup shape. Each data section holds a JSON
// string whose content is itself the JSON array (or settings object), so a
// section is encoded twice.
type Document struct {
	Todos      json.RawMessage `json:"todos,omitempty"`
	Categories json.RawMessage `json:"categories,omitempty"`
	Reports    json.RawMessage `json:"reports,omitempty"`
	Settings   json.RawMessage `json:"settings,omitempty"`
	ExportDate string          `json:"exportDate,omitempty"`
	Version    string          `json:"version,omitempty"`
}

// Bundle is a decoded Document. Has* report which sections were present.
type Bundle struct {
	Todos      []store.Todo
	Categories []store.Category
	Reports    []store.Report
	// Settings is the raw settings blob, nil when the section is absent.
	Settings *string

	HasTodos      bool
	HasCategories bool
	HasReports    bool

	// Undecodable counts array elements that did not match the record shape.
	Undecodable int

	ExportDate string
	Version    string
}

// ExportFileName is the suggested file name for a backup taken at t.
func ExportFileName(t time.Time) string {
	return "daily-report-backup-" + t.UTC().Format("2006-01-02") + ".json"
}

func encodeSection(v any) (json.RawMessage, error) {
	inner, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(inner))
}

func malformed(format string, args ...any) error {
	return &store.Error{
		Kind: store.KindValidation,
		Op:   "parse backup",
		Err:  fmt.Errorf("%w: "+format, append([]any{ErrMalformed}, args...)...),
	}
}

// ParseDocument decodes and validates a backup. Sections may be
// double-encoded strings, as Export writes them, or plain JSON values. A
// document with none of the data sections is rejected.
func ParseDocument(data []byte) (*Bundle, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, malformed("%v", err)
	}

	b := &Bundle{ExportDate: doc.ExportDate, Version: doc.Version}
	var err error
	if b.HasTodos, err = decodeSection(doc.Todos, &b.Todos, &b.Undecodable); err != nil {
		return nil, malformed("todos: %v", err)
	}
	if b.HasCategories, err = decodeSection(doc.Categories, &b.Categories, &b.Undecodable); err != nil {
		return nil, malformed("categories: %v", err)
	}
	if b.HasReports, err = decodeSection(doc.Reports, &b.Reports, &b.Undecodable); err != nil {
		return nil, malformed("reports: %v", err)
	}
	if b.Settings, err = settingsSection(doc.Settings); err != nil {
		return nil, malformed("settings: %v", err)
	}

	if !b.HasTodos && !b.HasCategories && !b.HasReports && b.Settings == nil {
		return nil, malformed("no todos, categories, reports or settings")
	}
	return b, nil
}

func absent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// unwrap returns the inner JSON of a double-encoded section, or raw itself
// when the section is not a string. An empty string counts as absent.
func unwrap(raw json.RawMessage) (json.RawMessage, bool, error) {
	if absent(raw) {
		return nil, false, nil
	}
	raw = bytes.TrimSpace(raw)
	if raw[0] != '"' {
		return raw, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, err
	}
	if s == "" {
		return nil, false, nil
	}
	return json.RawMessage(s), true, nil
}

// decodeSection requires the section to be an array. Elements that do not
// decode into T are dropped and counted in *skipped.
func decodeSection[T any](raw json.RawMessage, dst *[]T, skipped *int) (bool, error) {
	inner, ok, err := unwrap(raw)
	if err != nil || !ok {
		return false, err
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(inner, &elems); err != nil {
		return false, err
	}
	out := make([]T, 0, len(elems))
	for _, e := range elems {
		var rec T
		if err := json.Unmarshal(e, &rec); err != nil {
			*skipped++
			continue
		}
		out = append(out, rec)
	}
	*dst = out
	return true, nil
}

// settingsSection keeps the settings blob as stored, without parsing it.
func settingsSection(raw json.RawMessage) (*string, error) {
	inner, ok, err := unwrap(raw)
	if err != nil || !ok {
		return nil, err
	}
	s := string(inner)
	return &s, nil
}
