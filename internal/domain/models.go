package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// RenderedPage represents a single rasterized document page ready for transport
type RenderedPage struct {
	Index    int    // 0-based position in the source document
	Data     string // base64-encoded image bytes
	MIMEType string
	Width    int
	Height   int
}

// DataURI returns the page as an inline data URI.
func (p RenderedPage) DataURI() string {
	return "data:" + p.MIMEType + ";base64," + p.Data
}

// DocumentInfo describes a source document without rendering it
type DocumentInfo struct {
	Path   string
	Format string
	Pages  int
}

// BibliographicRecord is the nominal schema of one catalog entry.
// Extracted records are not required to match it; see record.Validate.
type BibliographicRecord struct {
	Titolo            string  `json:"Titolo"`
	Autore            string  `json:"Autore"`
	Anno              *int    `json:"Anno,omitempty"`
	Editore           *string `json:"Editore,omitempty"`
	DescrizioneFisica *string `json:"Descrizione_fisica,omitempty"`
	Note              *string `json:"Note,omitempty"`
}

// Field is a single key/value pair of a Record.
type Field struct {
	Key   string
	Value any
}

// Record is an open mapping of field names to scalar values that remembers
// the order in which keys were first set. Values are string, int64, float64,
// bool or nil.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord builds a record from fields in order.
func NewRecord(fields ...Field) Record {
	var r Record
	for _, f := range fields {
		r.Set(f.Key, f.Value)
	}
	return r
}

// Set assigns a value. A key that is already present keeps its position.
func (r *Record) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the record's keys in first-seen order.
func (r Record) Keys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.keys)
}

// MarshalJSON encodes the record as a JSON object preserving key order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EventType identifies a pipeline stage notification
type EventType string

const (
	EventStart     EventType = "start"
	EventExtracted EventType = "extracted"
	EventValidated EventType = "validated"
	EventPersisted EventType = "persisted"
	EventNoData    EventType = "no_data"
	EventError     EventType = "error"
)

// StreamEvent reports progress of a single pipeline run
type StreamEvent struct {
	Type      EventType
	RunID     string
	Payload   string
	Records   int
	Timestamp time.Time
}
