package paradisec

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// Collection matches collections.geo_json and collections/{id}.geo_json.
type Collection struct {
	Metadata Metadata  `json:"metadata"`
	Features []Feature `json:"features"`
}

type Metadata struct {
	ID          ID      `json:"id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Publisher   string  `json:"publisher"`
	Contact     string  `json:"contact"`
	URL         string  `json:"url"`
	License     *string `json:"license"`
	Rights      *string `json:"rights"`
}

type Feature struct {
	Properties Properties `json:"properties"`
	Geometry   *Geometry  `json:"geometry"`
}

type Properties struct {
	ID          ID         `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	URL         string     `json:"url"`
	UDateStart  *Timestamp `json:"udatestart"`
	Languages   *string    `json:"languages"`
	Countries   *string    `json:"countries"`
	Publisher   *string    `json:"publisher"`
	Contact     *string    `json:"contact"`
	License     *string    `json:"license"`
	Rights      *string    `json:"rights"`
}

// Geometry keeps coordinates raw; only a [lon, lat] pair is meaningful to us
// and anything else must not fail the whole document.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// ID is a remote identifier. The catalog emits strings, but numeric ids
// are accepted and kept in their decimal form.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Timestamp is an epoch value in seconds or milliseconds, sent either as a
// number or as a numeric string.
type Timestamp float64

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("udatestart: %w", err)
		}
		*t = Timestamp(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("udatestart: %w", err)
	}
	*t = Timestamp(f)
	return nil
}

// Float returns nil for an absent timestamp.
func (t *Timestamp) Float() *float64 {
	if t == nil {
		return nil
	}
	f := float64(*t)
	return &f
}
