// Package dataset reads and writes the structured literature dataset in
// its JSON and CSV forms.
package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xxxsen/medrag/internal/filestore"
	"github.com/xxxsen/medrag/internal/model"
	"github.com/xxxsen/medrag/internal/sanitize"
)

var csvHeader = []string{
	"id", "title", "year", "authors", "source", "url", "summary", "abstract", "text",
	"conditions", "allergens", "food_triggers", "regions", "prevalence_percent",
}

// Export writes records to store as csvKey and jsonKey.
func Export(ctx context.Context, store filestore.Store, records []model.Record, csvKey, jsonKey string) error {
	jsonData, err := EncodeJSON(records)
	if err != nil {
		return err
	}
	csvData, err := EncodeCSV(records)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, csvKey, csvData); err != nil {
		return fmt.Errorf("save %s: %w", csvKey, err)
	}
	if err := store.Put(ctx, jsonKey, jsonData); err != nil {
		return fmt.Errorf("save %s: %w", jsonKey, err)
	}
	return nil
}

func EncodeJSON(records []model.Record) ([]byte, error) {
	if records == nil {
		records = []model.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encode dataset json: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeCSV writes one row per record. List columns use the metadata
// delimiter; prevalence is a JSON array.
func EncodeCSV(records []model.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, r := range records {
		prevalence := r.PrevalencePercent
		if prevalence == nil {
			prevalence = []float64{}
		}
		row := []string{
			r.ID, r.Title, string(r.Year), joinList(r.Authors), r.Source, r.URL,
			r.Summary, r.Abstract, r.Text,
			joinList(r.Conditions), joinList(r.Allergens), joinList(r.FoodTriggers), joinList(r.Regions),
			fmt.Sprint(sanitize.Value(prevalence)),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode dataset csv: %w", err)
	}
	return buf.Bytes(), nil
}

func DecodeJSON(r io.Reader) ([]model.Record, error) {
	var records []model.Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode dataset json: %w", err)
	}
	return records, nil
}

// DecodeCSV reads rows by header name. The indexed summary of each row is
// its title, summary and text joined, so short rows still carry their
// title into the embedding.
func DecodeCSV(r io.Reader) ([]model.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset csv header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	var records []model.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dataset csv line %d: %w", line, err)
		}
		col := func(name string) string {
			if i, ok := idx[name]; ok && i < len(row) {
				return row[i]
			}
			return ""
		}
		prevalence, err := parseFloats(col("prevalence_percent"))
		if err != nil {
			return nil, fmt.Errorf("dataset csv line %d: %w", line, err)
		}
		rec := model.Record{
			ID:                col("id"),
			Title:             col("title"),
			Year:              model.Year(strings.TrimSpace(col("year"))),
			Authors:           splitList(col("authors")),
			Source:            col("source"),
			URL:               col("url"),
			Abstract:          col("abstract"),
			Text:              col("text"),
			Conditions:        splitList(col("conditions")),
			Allergens:         splitList(col("allergens")),
			FoodTriggers:      splitList(col("food_triggers")),
			Regions:           splitList(col("regions")),
			PrevalencePercent: prevalence,
		}
		rec.Summary = strings.TrimSpace(strings.Join([]string{rec.Title, col("summary"), rec.Text}, " "))
		records = append(records, rec)
	}
	return records, nil
}

// LoadFile reads a dataset from disk, choosing the format by extension.
func LoadFile(path string) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return DecodeJSON(f)
	case ".csv":
		return DecodeCSV(f)
	default:
		return nil, fmt.Errorf("unsupported dataset format: %s", path)
	}
}

func joinList(items []string) string {
	return strings.Join(items, sanitize.ListDelimiter)
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseFloats accepts a JSON array or a delimited list of numbers.
func parseFloats(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []float64{}, nil
	}
	if strings.HasPrefix(s, "[") {
		var out []float64
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, fmt.Errorf("parse prevalence %q: %w", s, err)
		}
		return out, nil
	}
	out := []float64{}
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' }) {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("parse prevalence %q: %w", s, err)
		}
		out = append(out, v)
	}
	return out, nil
}
