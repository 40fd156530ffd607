package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/spherical/catalog-extractor/internal/domain"
)

const recordsKey = "records"

var openingFence = regexp.MustCompile("^```[A-Za-z0-9_+-]*")

// Unwrap strips surrounding whitespace and markdown code fences from a model
// reply. Text that is not fenced is returned trimmed and otherwise unchanged.
func Unwrap(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(openingFence.ReplaceAllString(s, ""))
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// ParseRecords decodes a model reply into ordered records.
// A reply without a "records" key (or with a null one) yields an empty list.
func ParseRecords(content string) ([]domain.Record, error) {
	text := Unwrap(content)
	if !gjson.Valid(text) {
		return nil, domain.ExtractionError("model response is not valid JSON", fmt.Errorf("response: %q", truncate(text, 200)))
	}

	root := gjson.Parse(text)
	if !root.IsObject() {
		return nil, domain.ExtractionError("model response is not a JSON object", nil)
	}

	// Last occurrence wins, as with any JSON object decoder.
	var records gjson.Result
	found := false
	root.ForEach(func(key, value gjson.Result) bool {
		if key.String() == recordsKey {
			records = value
			found = true
		}
		return true
	})

	if !found || records.Type == gjson.Null {
		return []domain.Record{}, nil
	}
	if !records.IsArray() {
		return nil, domain.ExtractionError(fmt.Sprintf("%q is not a list", recordsKey), nil)
	}

	out := []domain.Record{}
	var parseErr error
	records.ForEach(func(idx, item gjson.Result) bool {
		if !item.IsObject() {
			parseErr = domain.ExtractionError(fmt.Sprintf("record %d is not an object", len(out)), nil)
			return false
		}
		rec, err := decodeRecord(item)
		if err != nil {
			parseErr = domain.ExtractionError(fmt.Sprintf("record %d could not be decoded", len(out)), err)
			return false
		}
		out = append(out, rec)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return out, nil
}

// decodeRecord keeps the object's keys verbatim and in order.
func decodeRecord(obj gjson.Result) (domain.Record, error) {
	var rec domain.Record
	var err error
	obj.ForEach(func(key, value gjson.Result) bool {
		var v any
		v, err = scalar(value)
		if err != nil {
			return false
		}
		rec.Set(key.String(), v)
		return true
	})
	return rec, err
}

// scalar converts a JSON value into a cell-friendly Go value. Nested objects
// and arrays are kept as compact JSON text.
func scalar(v gjson.Result) (any, error) {
	switch v.Type {
	case gjson.Null:
		return nil, nil
	case gjson.False, gjson.True:
		return v.Bool(), nil
	case gjson.String:
		return v.Str, nil
	case gjson.Number:
		if !strings.ContainsAny(v.Raw, ".eE") {
			if n, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
				return n, nil
			}
		}
		if math.IsInf(v.Num, 0) || math.IsNaN(v.Num) {
			// out of float64 range, keep the literal
			return v.Raw, nil
		}
		return v.Num, nil
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(v.Raw)); err != nil {
			return nil, err
		}
		return buf.String(), nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
