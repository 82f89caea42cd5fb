package dataset

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/medrag/internal/config"
	"github.com/xxxsen/medrag/internal/filestore"
	"github.com/xxxsen/medrag/internal/model"
)

func sampleRecords() []model.Record {
	return []model.Record{
		{
			ID: "abc", Title: "Nickel, chromate & cement", Year: "2020", Authors: []string{"A. Rao", "B. Nair"},
			Source: "semantic_scholar", Summary: "Patch tests \"positive\" in 12%", Text: "full text",
			Allergens: []string{"nickel", "chromate"}, Regions: []string{"Kerala"}, PrevalencePercent: []float64{12, 7.5},
		},
		{ID: "local_1", Title: "Urticaria", Source: "pubmed"},
	}
}

func TestExportAndReload(t *testing.T) {
	dir := t.TempDir()
	store, err := filestore.New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": dir}})
	require.NoError(t, err)
	require.NoError(t, Export(context.Background(), store, sampleRecords(), "out.csv", "out.json"))

	fromJSON, err := LoadFile(filepath.Join(dir, "out.json"))
	require.NoError(t, err)
	require.Len(t, fromJSON, 2)
	require.Equal(t, sampleRecords()[0].Title, fromJSON[0].Title)
	require.Equal(t, []float64{12, 7.5}, fromJSON[0].PrevalencePercent)
	require.Equal(t, model.Year("2020"), fromJSON[0].Year)

	fromCSV, err := LoadFile(filepath.Join(dir, "out.csv"))
	require.NoError(t, err)
	require.Len(t, fromCSV, 2)
	first := fromCSV[0]
	require.Equal(t, "abc", first.ID)
	require.Equal(t, []string{"A. Rao", "B. Nair"}, first.Authors)
	require.Equal(t, []string{"nickel", "chromate"}, first.Allergens)
	require.Equal(t, []float64{12, 7.5}, first.PrevalencePercent)
	require.Equal(t, `Nickel, chromate & cement Patch tests "positive" in 12% full text`, first.Summary)
	require.Equal(t, "Urticaria", fromCSV[1].Summary)
	require.Empty(t, fromCSV[1].PrevalencePercent)
}

func TestEncodeJSON_NoHTMLEscape(t *testing.T) {
	data, err := EncodeJSON([]model.Record{{Title: "<b>dust & mites</b>"}})
	require.NoError(t, err)
	require.Contains(t, string(data), "<b>dust & mites</b>")
	empty, err := EncodeJSON(nil)
	require.NoError(t, err)
	require.Equal(t, "[]\n", string(empty))
}

func TestDecodeJSON_YearShapes(t *testing.T) {
	recs, err := DecodeJSON(strings.NewReader(`[{"title":"a","year":2019},{"title":"b","year":"2018"},{"title":"c","year":null}]`))
	require.NoError(t, err)
	require.Equal(t, model.Year("2019"), recs[0].Year)
	require.Equal(t, model.Year("2018"), recs[1].Year)
	require.Equal(t, model.Year(""), recs[2].Year)
}

func TestDecodeCSV_LooseColumns(t *testing.T) {
	input := "title,summary,prevalence_percent\nEczema in Delhi,,3; 4.5\n"
	recs, err := DecodeCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "Eczema in Delhi", recs[0].Summary)
	require.Equal(t, []float64{3, 4.5}, recs[0].PrevalencePercent)

	_, err = DecodeCSV(strings.NewReader("title,prevalence_percent\nx,abc\n"))
	require.Error(t, err)

	recs, err = DecodeCSV(bytes.NewReader(nil))
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestLoadFile_UnknownFormat(t *testing.T) {
	p := filepath.Join(t.TempDir(), "data.xml")
	require.NoError(t, os.WriteFile(p, []byte("<x/>"), 0o644))
	_, err := LoadFile(p)
	require.Error(t, err)
}
