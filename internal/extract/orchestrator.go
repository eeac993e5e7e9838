package extract

import (
	"context"
	"fmt"
	"sort"

	"github.com/ladle-dev/ladle/internal/logging"
	"github.com/ladle-dev/ladle/internal/model"
)

// exhaustedWarning closes every failed cascade; the UI keys on it to route
// the user to manual import.
const exhaustedWarning = "All automatic extraction methods failed. Please try manual import."

// Orchestrator drives the extraction cascade: extractors in ascending
// priority order, first success at or above the confidence threshold wins.
// The extractor list is fixed at construction; there is no runtime
// registration.
type Orchestrator struct {
	extractors []Extractor
	threshold  int
	logger     logging.Logger
}

// NewOrchestrator builds an orchestrator over the given extractors, sorted
// once by ascending priority.
func NewOrchestrator(logger logging.Logger, extractors ...Extractor) *Orchestrator {
	if logger == nil {
		logger = logging.Nop{}
	}
	sorted := make([]Extractor, len(extractors))
	copy(sorted, extractors)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority() < sorted[j].Priority() })

	return &Orchestrator{
		extractors: sorted,
		threshold:  ConfidenceThreshold,
		logger:     logger.With(logging.Field{Key: "component", Value: "orchestrator"}),
	}
}

// Run executes the cascade for one input.
//
// Confidence gates the short-circuit, not just status: a low-confidence
// success from a cheap tier must not block a more reliable later attempt,
// and an expensive tier should only be consulted when nothing better
// qualified. Warnings accumulate earliest-first across tiers.
func (o *Orchestrator) Run(ctx context.Context, input *model.ExtractorInput) *model.ImportResult {
	var warnings []string

	// Best sub-threshold success seen so far; attached to a
	// manual_required outcome so the manual form can be pre-populated.
	var best *model.ExtractorResult

	for _, ex := range o.extractors {
		if ctx.Err() != nil {
			warnings = append(warnings, "import canceled: "+ctx.Err().Error())
			break
		}

		if !ex.CanHandle(input) {
			warnings = append(warnings, fmt.Sprintf("%s cannot handle this input", ex.Name()))
			continue
		}

		result := o.safeExtract(ctx, ex, input)

		if result.Status == model.ExtractSuccess && result.Recipe != nil && result.Confidence >= o.threshold {
			o.logger.Info("extraction succeeded",
				logging.Field{Key: "method", Value: ex.Name()},
				logging.Field{Key: "confidence", Value: result.Confidence})
			return &model.ImportResult{
				Status:        model.ImportSuccess,
				Recipe:        result.Recipe,
				Method:        result.Method,
				Confidence:    result.Confidence,
				Warnings:      append(warnings, result.Warnings...),
				MissingFields: result.MissingFields,
			}
		}

		if result.Status == model.ExtractSuccess && result.Recipe != nil {
			warnings = append(warnings, fmt.Sprintf("%s succeeded but confidence %d is below threshold %d",
				ex.Name(), result.Confidence, o.threshold))
			if best == nil || result.Confidence > best.Confidence {
				best = result
			}
		}
		warnings = append(warnings, result.Warnings...)

		o.logger.Debug("extractor did not qualify, continuing cascade",
			logging.Field{Key: "method", Value: ex.Name()},
			logging.Field{Key: "status", Value: string(result.Status)},
			logging.Field{Key: "confidence", Value: result.Confidence})
	}

	warnings = append(warnings, exhaustedWarning)

	out := &model.ImportResult{
		Status:   model.ImportManualRequired,
		Warnings: warnings,
	}
	if best != nil {
		out.Recipe = best.Recipe
		out.Method = best.Method
		out.Confidence = best.Confidence
		out.MissingFields = best.MissingFields
	}
	return out
}

// safeExtract isolates one extractor attempt. A panic inside a tier is
// converted into a failed result so the cascade advances instead of
// aborting the whole import.
func (o *Orchestrator) safeExtract(ctx context.Context, ex Extractor, input *model.ExtractorInput) (result *model.ExtractorResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("extractor panicked",
				logging.Field{Key: "method", Value: ex.Name()},
				logging.Field{Key: "panic", Value: fmt.Sprint(r)})
			result = failedResult(ex.Name(), fmt.Sprintf("%s crashed: %v", ex.Name(), r))
		}
	}()

	result = ex.Extract(ctx, input)
	if result == nil {
		result = failedResult(ex.Name(), ex.Name()+" returned no result")
	}
	if result.Status == model.ExtractSuccess && result.Recipe == nil {
		// A success without a recipe violates the extractor contract;
		// treat it as a failure rather than pass garbage downstream.
		result = failedResult(ex.Name(), ex.Name()+" reported success without a recipe")
	}
	return result
}
