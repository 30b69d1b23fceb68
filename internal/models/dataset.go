// Package models defines the datasets, entities and jobs handled by propslice.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
)

// Field names with meaning to the slicer. Every other field is opaque.
const (
	FieldProps      = "props"
	FieldTotalProps = "totalProps"
)

// ErrNotObject indicates a dataset whose top-level JSON value is not an object.
var ErrNotObject = errors.New("dataset is not a JSON object")

// Entity is one ranked record. Raw is round-tripped untouched.
type Entity struct {
	Raw  json.RawMessage
	Rank Rank
}

// NewEntity wraps a raw JSON record and extracts its rank.
func NewEntity(raw json.RawMessage) Entity {
	return Entity{Raw: raw, Rank: parseRank(raw)}
}

// Dataset is a JSON object with a props collection and opaque metadata.
type Dataset struct {
	// Props is the parsed props collection; empty when the field is absent
	// or not an array.
	Props []Entity

	fields map[string]json.RawMessage
}

// ParseDataset decodes a dataset document. A props field that is missing or
// not an array is treated as empty; a document that is not valid JSON or not
// an object is an error. A bare null decodes as an empty dataset.
func ParseDataset(data []byte) (*Dataset, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: found %s", ErrNotObject, typeErr.Value)
		}
		return nil, err
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage)
	}

	ds := &Dataset{fields: fields}

	var rawProps []json.RawMessage
	if raw, ok := fields[FieldProps]; ok {
		if err := json.Unmarshal(raw, &rawProps); err != nil {
			rawProps = nil
		}
	}
	ds.Props = make([]Entity, 0, len(rawProps))
	for _, r := range rawProps {
		ds.Props = append(ds.Props, NewEntity(r))
	}

	return ds, nil
}

// Field returns the raw value of a top-level field.
func (d *Dataset) Field(name string) (json.RawMessage, bool) {
	v, ok := d.fields[name]
	return v, ok
}

// SliceTopByRank returns a new dataset holding the first limit props by
// ascending rank, with totalProps set to the retained count. All other fields
// are shared with d.
func (d *Dataset) SliceTopByRank(limit int) *Dataset {
	fields := make(map[string]json.RawMessage, len(d.fields)+2)
	for k, v := range d.fields {
		fields[k] = v
	}

	top := SelectTopByRank(d.Props, limit)
	fields[FieldTotalProps] = json.RawMessage(strconv.Itoa(len(top)))

	return &Dataset{Props: top, fields: fields}
}

// MarshalJSON encodes the dataset with props rendered from Props.
// Object keys come out sorted, which keeps the encoding stable.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.fields)+1)
	for k, v := range d.fields {
		out[k] = v
	}

	props := make([]json.RawMessage, 0, len(d.Props))
	for _, e := range d.Props {
		props = append(props, e.Raw)
	}
	raw, err := marshalRaw(props)
	if err != nil {
		return nil, fmt.Errorf("encode props: %w", err)
	}
	out[FieldProps] = raw

	return marshalRaw(out)
}

// marshalRaw encodes v without HTML escaping so opaque string values keep
// their original characters.
func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// SelectTopByRank stable-sorts entities by ascending rank and keeps the first
// limit of them. Entities with equal rank keep their input order. The input
// slice is not modified.
func SelectTopByRank(entities []Entity, limit int) []Entity {
	if limit <= 0 {
		return []Entity{}
	}

	sorted := slices.Clone(entities)
	slices.SortStableFunc(sorted, func(a, b Entity) int {
		return a.Rank.Compare(b.Rank)
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	if sorted == nil {
		sorted = []Entity{}
	}
	return sorted
}
