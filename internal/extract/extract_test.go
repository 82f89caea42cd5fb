package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/medrag/internal/model"
)

const abstract = `Patch testing of 250 patients in Kerala and New Delhi showed nickel
sensitivity in 12.5% and fragrance mix in 8 per cent. Allergic contact dermatitis
was the leading diagnosis; 3/40 patients also reported peanut and milk allergy.`

func TestFeatures(t *testing.T) {
	rec := Features(model.Paper{
		Source:   "pubmed",
		Title:    "Contact allergens in South India, 2019 cohort",
		Abstract: abstract,
		Authors:  []string{"Rao A"},
	})
	require.Equal(t, "pubmed", rec.Source)
	require.Equal(t, model.Year("2019"), rec.Year)
	require.Equal(t, []string{"Rao A"}, rec.Authors)
	require.Equal(t, []string{"nickel", "fragrance", "milk", "peanut"}, rec.Allergens)
	require.Equal(t, []string{"milk", "peanut"}, rec.FoodTriggers)
	require.Equal(t, []string{"contact dermatitis", "allergic contact dermatitis"}, rec.Conditions)
	require.Equal(t, []string{"Delhi", "Kerala"}, rec.Regions)
	require.Equal(t, []float64{12.5, 8, 7.5}, rec.PrevalencePercent)
	require.NotContains(t, rec.Summary, "\n")
	require.True(t, strings.HasPrefix(rec.Summary, "Patch testing"))
}

func TestFeatures_KeepsGivenYear(t *testing.T) {
	rec := Features(model.Paper{Title: "Survey 2018", Year: "2021"})
	require.Equal(t, model.Year("2021"), rec.Year)
	require.Empty(t, rec.Allergens)
	require.NotNil(t, rec.Authors)
}

func TestRegions_WordBoundary(t *testing.T) {
	require.Empty(t, Regions("Indiana and Punjabi cuisine"))
	require.Equal(t, []string{"India", "Tamil Nadu"}, Regions("tamil nadu, INDIA"))
}

func TestPercentages(t *testing.T) {
	require.Equal(t, []float64{45, 2.75}, Percentages("45 percent of cases"+" and 2.75 PERCENT"))
	require.Equal(t, []float64{33.33}, Percentages("1/3 of children"))
	require.Empty(t, Percentages("ratio 5/0 is undefined"))
}

func TestYearFromTitle(t *testing.T) {
	require.Equal(t, model.Year("2024"), YearFromTitle("Trends 2024"))
	require.Equal(t, model.Year(""), YearFromTitle("Trends 2014 and 2026"))
}

func TestSummarize(t *testing.T) {
	require.Equal(t, "a b", Summarize("  a\nb \n", 10))
	long := strings.Repeat("x", 1005)
	out := Summarize(long, SummaryMaxChars)
	require.Len(t, out, 1003)
	require.True(t, strings.HasSuffix(out, "..."))
	require.Equal(t, strings.Repeat("y", 1000), Summarize(strings.Repeat("y", 1000), SummaryMaxChars))
}
