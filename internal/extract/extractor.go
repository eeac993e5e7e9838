// Package extract implements the three-tier recipe extraction cascade:
// schema.org JSON-LD, HTML heuristics, and LLM-based extraction, unified
// behind one contract and driven by the Orchestrator.
package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/ladle-dev/ladle/internal/model"
	"github.com/ladle-dev/ladle/internal/units"
)

// Extractor is the polymorphic extraction capability. Implementations are
// stateless and shared across concurrent imports.
type Extractor interface {
	// Name is a stable identifier used in logs and results.
	Name() string

	// Priority orders the cascade; lower is tried first. Free and highly
	// specific signals come before paid generic fallbacks.
	Priority() int

	// CanHandle is a cheap pre-filter with no network calls. True is not
	// a guarantee of success.
	CanHandle(input *model.ExtractorInput) bool

	// Extract attempts to produce a partial recipe. Implementations catch
	// their own failures and report them as failed results; the
	// Orchestrator additionally guards the call site against panics.
	Extract(ctx context.Context, input *model.ExtractorInput) *model.ExtractorResult
}

// Fixed cascade priorities.
const (
	PriorityStructuredData = 1
	PriorityHeuristic      = 2
	PriorityLLM            = 3
)

func failedResult(method string, warnings ...string) *model.ExtractorResult {
	return &model.ExtractorResult{
		Status:   model.ExtractFailed,
		Method:   method,
		Warnings: warnings,
	}
}

// fractionRe matches a leading amount: "2", "1.5", "1/2" or "1 1/2".
var fractionRe = regexp.MustCompile(`^(\d+\s+\d+/\d+|\d+/\d+|\d+(?:\.\d+)?)\s+`)

// parseIngredientLine splits a free-form ingredient line ("2 cups flour,
// sifted") into quantity, unit and name. The unit is only split off when the
// measurement table knows it; otherwise it stays part of the name.
func parseIngredientLine(line string) model.IngredientRef {
	line = strings.TrimSpace(line)
	ref := model.IngredientRef{Name: line}
	if line == "" {
		return ref
	}

	m := fractionRe.FindStringSubmatch(line)
	if m == nil {
		return ref
	}
	qty, ok := parseAmount(m[1])
	if !ok {
		return ref
	}

	rest := strings.TrimSpace(line[len(m[0]):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ref
	}

	ref.Quantity = qty
	if len(fields) > 1 && units.IsValid(fields[0]) {
		d, _ := units.Lookup(fields[0])
		ref.Unit = d.ID
		ref.Name = strings.TrimSpace(strings.Join(fields[1:], " "))
	} else {
		ref.Name = rest
	}
	ref.Name = strings.TrimPrefix(ref.Name, "of ")
	return ref
}

func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if whole, frac, found := strings.Cut(s, " "); found {
		w, okW := parseAmount(whole)
		f, okF := parseAmount(frac)
		if okW && okF {
			return w + f, true
		}
		return 0, false
	}
	if num, den, found := strings.Cut(s, "/"); found {
		n, errN := strconv.ParseFloat(num, 64)
		d, errD := strconv.ParseFloat(den, 64)
		if errN != nil || errD != nil || d == 0 {
			return 0, false
		}
		return n / d, true
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

// cleanLines trims entries and drops the falsy ones, preserving order.
func cleanLines(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
