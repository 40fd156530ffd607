// Package record checks extracted records against the bibliographic schema.
package record

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/spherical/catalog-extractor/internal/domain"
)

//go:embed bibliographic_record.schema.json
var schemaJSON []byte

const schemaURL = "bibliographic_record.schema.json"

var loadSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to load record schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile record schema: %w", err)
	}
	return schema, nil
})

// FieldError describes one schema violation. Field is empty for violations
// that concern the record as a whole.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Result is the outcome of validating one record. Exactly one of Record and
// Errors is set.
type Result struct {
	Index  int
	Record *domain.BibliographicRecord
	Errors []FieldError
}

// Valid reports whether the record matched the schema.
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// Validate checks a single record.
func Validate(rec domain.Record) Result {
	schema, err := loadSchema()
	if err != nil {
		return Result{Errors: []FieldError{{Message: err.Error()}}}
	}

	doc, err := toDocument(rec)
	if err != nil {
		return Result{Errors: []FieldError{{Message: err.Error()}}}
	}

	if err := schema.Validate(doc); err != nil {
		return Result{Errors: fieldErrors(err)}
	}

	br, err := toBibliographic(rec)
	if err != nil {
		return Result{Errors: []FieldError{{Field: "Anno", Message: err.Error()}}}
	}
	return Result{Record: br}
}

// ValidateAll validates records in order.
func ValidateAll(records []domain.Record) []Result {
	results := make([]Result, len(records))
	for i, rec := range records {
		results[i] = Validate(rec)
		results[i].Index = i
	}
	return results
}

// Invalid returns only the failed results.
func Invalid(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

func toDocument(rec domain.Record) (any, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return doc, nil
}

// fieldErrors flattens a validation error tree into its leaves.
func fieldErrors(err error) []FieldError {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []FieldError{{Message: err.Error()}}
	}

	var out []FieldError
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, FieldError{
				Field:   fieldName(e.InstanceLocation),
				Message: e.Message,
			})
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// fieldName turns a JSON pointer such as "/Anno" into "Anno".
func fieldName(pointer string) string {
	name := strings.TrimPrefix(pointer, "/")
	name = strings.ReplaceAll(name, "~1", "/")
	return strings.ReplaceAll(name, "~0", "~")
}

// Anno bounds, matching the four-digit string form.
const (
	minYear = 0
	maxYear = 9999
)

func toBibliographic(rec domain.Record) (*domain.BibliographicRecord, error) {
	br := &domain.BibliographicRecord{
		Titolo: stringValue(rec, "Titolo"),
		Autore: stringValue(rec, "Autore"),
	}

	if v, ok := rec.Get("Anno"); ok && v != nil {
		var year int
		switch n := v.(type) {
		case int64:
			if n < minYear || n > maxYear {
				return nil, fmt.Errorf("year out of range: %d", n)
			}
			year = int(n)
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("not a whole year: %v", n)
			}
			if n < minYear || n > maxYear {
				return nil, fmt.Errorf("year out of range: %v", n)
			}
			year = int(n)
		case string:
			parsed, err := strconv.Atoi(n)
			if err != nil {
				return nil, fmt.Errorf("not a year: %q", n)
			}
			year = parsed
		default:
			return nil, fmt.Errorf("unexpected type %T", v)
		}
		br.Anno = &year
	}

	br.Editore = optionalString(rec, "Editore")
	br.DescrizioneFisica = optionalString(rec, "Descrizione_fisica")
	br.Note = optionalString(rec, "Note")
	return br, nil
}

func stringValue(rec domain.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func optionalString(rec domain.Record, key string) *string {
	v, ok := rec.Get(key)
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}
