package rag

import (
	"fmt"
	"strings"
)

// Fact is a curated medicine entry appended to answers whose prompt names
// the medicine exactly.
type Fact struct {
	Name   string `json:"name"`
	Usage  string `json:"usage"`
	Dosage string `json:"dosage"`
}

func (f Fact) String() string {
	return fmt.Sprintf("%s is used for %s. Recommended dosage: %s.", f.Name, f.Usage, f.Dosage)
}

func DefaultFacts() map[string]Fact {
	return map[string]Fact{
		"paracetamol": {Name: "Paracetamol", Usage: "Pain relief", Dosage: "500mg"},
		"ibuprofen":   {Name: "Ibuprofen", Usage: "Anti-inflammatory", Dosage: "200mg"},
	}
}

// normalizeFacts lower-cases keys so lookups only need to lower-case the
// prompt.
func normalizeFacts(in map[string]Fact) map[string]Fact {
	out := make(map[string]Fact, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}
