package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"nursecall_bridge/internal/models"
)

// Top-level keys of the application document.
const (
	keyMasterSettings = "masterSettings"
	keyMasterData     = "masterData"
	keyCallHistory    = "callHistoryStorage"
)

// Store error kinds. Use errors.Is to classify a failure.
var (
	ErrStoreRead  = errors.New("document unreadable")
	ErrStoreParse = errors.New("document unparsable")
	ErrStoreWrite = errors.New("document not writable")
)

// StoreError carries the kind of failure together with its cause.
type StoreError struct {
	Kind error
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Kind, e.Path, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *StoreError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Document is the application configuration document. Only call history
// entries written through the store are re-encoded on save; every other
// key and every untouched entry is written back as it was read.
type Document struct {
	raw     map[string]json.RawMessage
	History []*HistoryEntry
}

// ParseDocument decodes the document bytes. History elements are decoded
// leniently: a malformed record never fails the whole document.
func ParseDocument(data []byte) (*Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("document is not a JSON object")
	}
	doc := &Document{raw: raw}
	if h, ok := raw[keyCallHistory]; ok && !isJSONNull(h) {
		var elems []json.RawMessage
		if err := json.Unmarshal(h, &elems); err != nil {
			return nil, fmt.Errorf("decode %s: %w", keyCallHistory, err)
		}
		doc.History = make([]*HistoryEntry, 0, len(elems))
		for _, e := range elems {
			doc.History = append(doc.History, parseHistoryEntry(e))
		}
	}
	return doc, nil
}

// Records returns the decoded view of every object entry in history order.
func (d *Document) Records() []models.CallRecord {
	out := make([]models.CallRecord, 0, len(d.History))
	for _, e := range d.History {
		if !e.Opaque() {
			out = append(out, e.Record)
		}
	}
	return out
}

// appendRecord adds a new history entry built from rec.
func (d *Document) appendRecord(rec models.CallRecord) (*HistoryEntry, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	e := parseHistoryEntry(data)
	d.History = append(d.History, e)
	return e, nil
}

// Encode renders the document as indented JSON.
func (d *Document) Encode() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.raw)+1)
	for k, v := range d.raw {
		out[k] = v
	}
	history := d.History
	if history == nil {
		history = []*HistoryEntry{}
	}
	h, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", keyCallHistory, err)
	}
	out[keyCallHistory] = h
	return json.MarshalIndent(out, "", "  ")
}

// HistoryEntry is one element of callHistoryStorage. Record is a lenient
// view of the element; changes go through setString so keys the bridge
// does not touch keep their original encoding.
type HistoryEntry struct {
	Record models.CallRecord

	raw    json.RawMessage            // nil once the entry is modified
	fields map[string]json.RawMessage // nil when the element is not an object
}

func parseHistoryEntry(data json.RawMessage) *HistoryEntry {
	e := &HistoryEntry{raw: data}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return e
	}
	e.fields = fields
	e.Record = models.CallRecord{
		ID:           int64Field(fields["id"]),
		Code:         stringValue(fields["code"]),
		Room:         stringValue(fields["room"]),
		Bed:          stringValue(fields["bed"]),
		Display:      stringValue(fields["display"]),
		Time:         stringValue(fields["time"]),
		Timestamp:    stringValue(fields["timestamp"]),
		Status:       stringValue(fields["status"]),
		ResetTime:    stringValue(fields["resetTime"]),
		ResetTimeStr: stringValue(fields["resetTimeStr"]),
		DateAdded:    stringValue(fields["dateAdded"]),
		DateModified: stringValue(fields["dateModified"]),
	}
	return e
}

// Opaque reports whether the element is not a JSON object. Opaque entries
// are never matched or modified.
func (e *HistoryEntry) Opaque() bool { return e.fields == nil }

func (e *HistoryEntry) setString(key, v string) {
	b, _ := json.Marshal(v)
	e.fields[key] = b
	e.raw = nil
}

func (e *HistoryEntry) MarshalJSON() ([]byte, error) {
	if e.raw != nil {
		return e.raw, nil
	}
	return json.Marshal(e.fields)
}

// stringValue returns the JSON string in b, or "" for any other value.
func stringValue(b json.RawMessage) string {
	var s string
	if json.Unmarshal(b, &s) != nil {
		return ""
	}
	return s
}

// int64Field accepts integers, floats such as 1712345678901.0 and numeric
// strings. Anything else reads as 0.
func int64Field(b json.RawMessage) int64 {
	var n json.Number
	if json.Unmarshal(b, &n) != nil {
		return 0
	}
	if v, err := n.Int64(); err == nil {
		return v
	}
	if f, err := n.Float64(); err == nil {
		return int64(f)
	}
	return 0
}

// MasterType reads masterSettings.masterType, accepting the legacy
// "master" and "type" keys, and defaults to Commax.
func (d *Document) MasterType() string {
	var settings map[string]json.RawMessage
	if err := json.Unmarshal(d.raw[keyMasterSettings], &settings); err != nil {
		return models.DefaultMasterType
	}
	for _, key := range []string{"masterType", "master", "type"} {
		var s string
		if v, ok := settings[key]; ok && json.Unmarshal(v, &s) == nil {
			return strings.TrimSpace(s)
		}
	}
	return models.DefaultMasterType
}

// MasterEntries decodes masterData. Non-string values are treated as empty.
func (d *Document) MasterEntries() []models.MasterEntry {
	var rows []map[string]any
	if err := json.Unmarshal(d.raw[keyMasterData], &rows); err != nil {
		return nil
	}
	entries := make([]models.MasterEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, models.MasterEntry{
			CharCode: stringField(r, "charCode"),
			RoomName: stringField(r, "roomName"),
			BedName:  stringField(r, "bedName"),
			V1:       stringField(r, "v1"),
			V2:       stringField(r, "v2"),
			V3:       stringField(r, "v3"),
			V4:       stringField(r, "v4"),
			V5:       stringField(r, "v5"),
			V6:       stringField(r, "v6"),
		})
	}
	return entries
}

// LookupMaster returns the first master entry for code.
func (d *Document) LookupMaster(code string) (models.MasterEntry, bool) {
	for _, e := range d.MasterEntries() {
		if e.CharCode == code {
			return e, true
		}
	}
	return models.MasterEntry{}, false
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func isJSONNull(b json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}

// DocumentStore gives serialized access to the application document.
type DocumentStore interface {
	// Read loads a snapshot of the document.
	Read(ctx context.Context) (*Document, error)
	// Update loads the document, applies fn and persists it when fn reports a change.
	// Concurrent Update calls are serialized.
	Update(ctx context.Context, fn func(doc *Document) (bool, error)) error
	// Replace overwrites the document with raw JSON after validating it.
	Replace(ctx context.Context, raw []byte) error
}

// JSONFileStore keeps the document in a JSON file owned by the host application.
type JSONFileStore struct {
	path string
	mu   sync.Mutex
}

// Ensure implementation of DocumentStore at compile time.
var _ DocumentStore = (*JSONFileStore)(nil)

func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{path: path}
}

// Path returns the backing file location.
func (s *JSONFileStore) Path() string { return s.path }

func (s *JSONFileStore) Read(ctx context.Context) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *JSONFileStore) Update(ctx context.Context, fn func(doc *Document) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	changed, err := fn(doc)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	data, err := doc.Encode()
	if err != nil {
		return &StoreError{Kind: ErrStoreWrite, Path: s.path, Err: err}
	}
	return s.write(data)
}

func (s *JSONFileStore) Replace(ctx context.Context, raw []byte) error {
	if _, err := ParseDocument(raw); err != nil {
		return &StoreError{Kind: ErrStoreParse, Path: s.path, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(raw)
}

func (s *JSONFileStore) load(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &StoreError{Kind: ErrStoreRead, Path: s.path, Err: err}
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, &StoreError{Kind: ErrStoreParse, Path: s.path, Err: err}
	}
	return doc, nil
}

// write replaces the file through a temp file in the same directory so a
// crash mid-write never leaves a truncated document behind.
func (s *JSONFileStore) write(data []byte) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &StoreError{Kind: ErrStoreWrite, Path: s.path, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &StoreError{Kind: ErrStoreWrite, Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &StoreError{Kind: ErrStoreWrite, Path: s.path, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return &StoreError{Kind: ErrStoreWrite, Path: s.path, Err: err}
	}
	return nil
}
