package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Record is one structured literature entry as produced by the feature
// extractor and consumed by the indexer.
type Record struct {
	ID                string    `json:"id,omitempty"`
	Title             string    `json:"title"`
	Year              Year      `json:"year"`
	Authors           []string  `json:"authors"`
	Source            string    `json:"source"`
	URL               string    `json:"url,omitempty"`
	Summary           string    `json:"summary,omitempty"`
	Abstract          string    `json:"abstract,omitempty"`
	Text              string    `json:"text,omitempty"`
	Conditions        []string  `json:"conditions"`
	Allergens         []string  `json:"allergens"`
	FoodTriggers      []string  `json:"food_triggers"`
	Regions           []string  `json:"regions"`
	PrevalencePercent []float64 `json:"prevalence_percent"`
}

// Year accepts a JSON number, a string or null. Bibliographic APIs disagree
// on which one they send.
type Year string

func (y *Year) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*y = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*y = Year(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*y = Year(n.String())
	return nil
}

// Value returns the year as an int when it is numeric, otherwise the raw
// string.
func (y Year) Value() interface{} {
	s := strings.TrimSpace(string(y))
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}
