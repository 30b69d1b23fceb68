package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Rank is the sort key of an entity. A ranked value always orders before an
// unranked one; unranked entities compare equal to each other.
type Rank struct {
	value  float64
	ranked bool
}

// Unranked is the rank of entities without a usable rank field.
var Unranked = Rank{}

// Ranked returns a rank holding v. Non-finite values are unranked.
func Ranked(v float64) Rank {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Unranked
	}
	return Rank{value: v, ranked: true}
}

// IsRanked reports whether r holds a finite rank value.
func (r Rank) IsRanked() bool {
	return r.ranked
}

// Value returns the rank value and whether it is set.
func (r Rank) Value() (float64, bool) {
	return r.value, r.ranked
}

// Compare returns -1, 0 or +1 ordering r before, with, or after o.
func (r Rank) Compare(o Rank) int {
	switch {
	case r.ranked && !o.ranked:
		return -1
	case !r.ranked && o.ranked:
		return 1
	case !r.ranked && !o.ranked:
		return 0
	case r.value < o.value:
		return -1
	case r.value > o.value:
		return 1
	default:
		return 0
	}
}

// parseRank reads the "rank" key of a raw entity. Anything other than a JSON
// object carrying a finite JSON number under exactly that key is unranked.
func parseRank(raw json.RawMessage) Rank {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Unranked
	}
	v, ok := fields["rank"]
	if !ok {
		return Unranked
	}

	v = bytes.TrimSpace(v)
	if len(v) == 0 || (v[0] != '-' && (v[0] < '0' || v[0] > '9')) {
		// strings, booleans, null, objects and arrays
		return Unranked
	}
	f, err := strconv.ParseFloat(string(v), 64)
	if err != nil {
		return Unranked
	}
	return Ranked(f)
}
