// Package extract turns a fetched paper into a structured literature record
// using keyword lexicons and a few regular expressions.
package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/xxxsen/medrag/internal/model"
)

const SummaryMaxChars = 1000

var (
	percentRe  = regexp.MustCompile(`(?i)(\d{1,3}(?:\.\d+)?)\s*(%|percent|per cent)`)
	fractionRe = regexp.MustCompile(`(\d{1,3})\s*/\s*(\d{1,3})`)
	yearRe     = regexp.MustCompile(`\b(20(1[5-9]|2[0-5]))\b`)
	regionRes  = compileRegions(regionKeywords)
)

type regionMatcher struct {
	name string
	re   *regexp.Regexp
}

func compileRegions(names []string) []regionMatcher {
	out := make([]regionMatcher, 0, len(names))
	for _, name := range names {
		out = append(out, regionMatcher{
			name: name,
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`),
		})
	}
	return out
}

// Features extracts a record from p. The id and text fields are left for the
// caller, which knows the paper's position in the batch.
func Features(p model.Paper) model.Record {
	text := p.Abstract + "\n\n" + p.Text
	year := p.Year
	if year == "" {
		year = YearFromTitle(p.Title)
	}
	authors := p.Authors
	if authors == nil {
		authors = []string{}
	}
	return model.Record{
		Title:             p.Title,
		Year:              year,
		Authors:           authors,
		Source:            p.Source,
		URL:               p.URL,
		Summary:           Summarize(text, SummaryMaxChars),
		Abstract:          p.Abstract,
		Conditions:        Conditions(text),
		Allergens:         Allergens(text),
		FoodTriggers:      FoodTriggers(text),
		Regions:           Regions(text),
		PrevalencePercent: Percentages(text),
	}
}

func Allergens(text string) []string {
	return containsAny(text, allergenKeywords)
}

func FoodTriggers(text string) []string {
	return containsAny(text, foodKeywords)
}

func Conditions(text string) []string {
	return containsAny(text, conditionKeywords)
}

// Regions matches region names on word boundaries, ignoring case.
func Regions(text string) []string {
	found := []string{}
	for _, m := range regionRes {
		if m.re.MatchString(text) {
			found = append(found, m.name)
		}
	}
	return found
}

// Percentages returns explicit percentages ("12.5%", "8 per cent") followed
// by fractions ("3/40") converted to a percentage with two decimals.
func Percentages(text string) []float64 {
	results := []float64{}
	for _, m := range percentRe.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		results = append(results, v)
	}
	for _, m := range fractionRe.FindAllStringSubmatch(text, -1) {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		if b == 0 {
			continue
		}
		results = append(results, math.Round(float64(a)/float64(b)*100*100)/100)
	}
	return results
}

// YearFromTitle finds a 2015-2025 year in a title.
func YearFromTitle(title string) model.Year {
	return model.Year(yearRe.FindString(title))
}

// Summarize flattens newlines and keeps the first max characters.
func Summarize(text string, max int) string {
	s := strings.ReplaceAll(strings.TrimSpace(text), "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// containsAny returns the keywords found in text as lower-case substrings,
// in lexicon order.
func containsAny(text string, keywords []string) []string {
	lower := strings.ToLower(text)
	found := []string{}
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		if _, ok := seen[kw]; ok {
			continue
		}
		if strings.Contains(lower, kw) {
			seen[kw] = struct{}{}
			found = append(found, kw)
		}
	}
	return found
}
