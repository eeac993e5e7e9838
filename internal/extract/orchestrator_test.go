package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/ladle-dev/ladle/internal/logging"
	"github.com/ladle-dev/ladle/internal/model"
)

// stubExtractor is a scriptable cascade tier with call counting.
type stubExtractor struct {
	name      string
	priority  int
	canHandle bool
	result    *model.ExtractorResult
	panics    bool
	calls     int
}

func (s *stubExtractor) Name() string                              { return s.name }
func (s *stubExtractor) Priority() int                             { return s.priority }
func (s *stubExtractor) CanHandle(_ *model.ExtractorInput) bool    { return s.canHandle }
func (s *stubExtractor) Extract(_ context.Context, _ *model.ExtractorInput) *model.ExtractorResult {
	s.calls++
	if s.panics {
		panic("boom")
	}
	return s.result
}

func successResult(method string, confidence int) *model.ExtractorResult {
	return &model.ExtractorResult{
		Status:     model.ExtractSuccess,
		Recipe:     &model.PartialRecipe{Name: "R", Instructions: []string{"step"}},
		Confidence: confidence,
		Method:     method,
	}
}

func failResult(method, warning string) *model.ExtractorResult {
	return &model.ExtractorResult{Status: model.ExtractFailed, Method: method, Warnings: []string{warning}}
}

func run(t *testing.T, extractors ...Extractor) *model.ImportResult {
	t.Helper()
	o := NewOrchestrator(logging.Nop{}, extractors...)
	return o.Run(context.Background(), &model.ExtractorInput{HTML: "<html></html>"})
}

func TestCascade_ShortCircuitSkipsLowerTiers(t *testing.T) {
	t.Parallel()
	first := &stubExtractor{name: "structured-data", priority: 1, canHandle: true, result: successResult("structured-data", 85)}
	second := &stubExtractor{name: "html-heuristic", priority: 2, canHandle: true, result: successResult("html-heuristic", 90)}
	third := &stubExtractor{name: "llm", priority: 3, canHandle: true, result: successResult("llm", 70)}

	res := run(t, first, second, third)

	if res.Status != model.ImportSuccess || res.Method != "structured-data" {
		t.Fatalf("result = %+v", res)
	}
	if second.calls != 0 || third.calls != 0 {
		t.Errorf("lower tiers were invoked: heuristic=%d llm=%d", second.calls, third.calls)
	}
}

func TestCascade_FallbackPreservesWarningOrder(t *testing.T) {
	t.Parallel()
	first := &stubExtractor{name: "structured-data", priority: 1, canHandle: true, result: failResult("structured-data", "no JSON-LD blocks found in page")}
	second := &stubExtractor{name: "html-heuristic", priority: 2, canHandle: true, result: successResult("html-heuristic", 72)}

	res := run(t, first, second)

	if res.Status != model.ImportSuccess || res.Method != "html-heuristic" {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Warnings) == 0 || !strings.Contains(res.Warnings[0], "no JSON-LD") {
		t.Errorf("warnings = %v, want structured-data warning first", res.Warnings)
	}
}

func TestCascade_ExhaustionYieldsManualRequired(t *testing.T) {
	t.Parallel()
	a := &stubExtractor{name: "structured-data", priority: 1, canHandle: true, result: failResult("structured-data", "w1")}
	b := &stubExtractor{name: "html-heuristic", priority: 2, canHandle: true, result: failResult("html-heuristic", "w2")}
	c := &stubExtractor{name: "llm", priority: 3, canHandle: true, result: failResult("llm", "w3")}

	res := run(t, a, b, c)

	if res.Status != model.ImportManualRequired {
		t.Fatalf("status = %s", res.Status)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected accumulated warnings")
	}
	if last := res.Warnings[len(res.Warnings)-1]; last != exhaustedWarning {
		t.Errorf("last warning = %q", last)
	}
}

func TestCascade_PanicIsIsolated(t *testing.T) {
	t.Parallel()
	first := &stubExtractor{name: "structured-data", priority: 1, canHandle: true, panics: true}
	second := &stubExtractor{name: "html-heuristic", priority: 2, canHandle: true, result: successResult("html-heuristic", 75)}

	res := run(t, first, second)

	if second.calls != 1 {
		t.Fatal("cascade did not reach the next tier after a panic")
	}
	if res.Status != model.ImportSuccess || res.Method != "html-heuristic" {
		t.Fatalf("result = %+v", res)
	}
	joined := strings.Join(res.Warnings, " | ")
	if !strings.Contains(joined, "crashed") {
		t.Errorf("warnings = %v, want crash diagnostic", res.Warnings)
	}
}

func TestCascade_CannotHandleSkipsExtract(t *testing.T) {
	t.Parallel()
	declined := &stubExtractor{name: "structured-data", priority: 1, canHandle: false, result: successResult("structured-data", 90)}
	winner := &stubExtractor{name: "llm", priority: 3, canHandle: true, result: successResult("llm", 70)}

	res := run(t, declined, winner)

	if declined.calls != 0 {
		t.Error("Extract must not be called when CanHandle is false")
	}
	joined := strings.Join(res.Warnings, " | ")
	if !strings.Contains(joined, "structured-data cannot handle this input") {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestCascade_BelowThresholdDoesNotShortCircuit(t *testing.T) {
	t.Parallel()
	weak := &stubExtractor{name: "structured-data", priority: 1, canHandle: true, result: successResult("structured-data", 55)}
	strong := &stubExtractor{name: "llm", priority: 3, canHandle: true, result: successResult("llm", 70)}

	res := run(t, weak, strong)

	if strong.calls != 1 {
		t.Fatal("a below-threshold success must not stop the cascade")
	}
	if res.Status != model.ImportSuccess || res.Method != "llm" {
		t.Fatalf("result = %+v", res)
	}
}

func TestCascade_BelowThresholdOnlyPrepopulatesManualResult(t *testing.T) {
	t.Parallel()
	weak := &stubExtractor{name: "structured-data", priority: 1, canHandle: true, result: successResult("structured-data", 55)}
	broken := &stubExtractor{name: "llm", priority: 3, canHandle: true, result: failResult("llm", "nope")}

	res := run(t, weak, broken)

	if res.Status != model.ImportManualRequired {
		t.Fatalf("status = %s", res.Status)
	}
	if res.Recipe == nil || res.Method != "structured-data" || res.Confidence != 55 {
		t.Errorf("manual_required should carry the best sub-threshold recipe, got %+v", res)
	}
}

func TestCascade_SuccessWithoutRecipeIsContractViolation(t *testing.T) {
	t.Parallel()
	bad := &stubExtractor{name: "structured-data", priority: 1, canHandle: true,
		result: &model.ExtractorResult{Status: model.ExtractSuccess, Confidence: 95, Method: "structured-data"}}

	res := run(t, bad)

	if res.Status != model.ImportManualRequired {
		t.Fatalf("status = %s", res.Status)
	}
	if !strings.Contains(strings.Join(res.Warnings, " "), "success without a recipe") {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestCascade_SortsByPriority(t *testing.T) {
	t.Parallel()
	late := &stubExtractor{name: "llm", priority: 3, canHandle: true, result: successResult("llm", 70)}
	early := &stubExtractor{name: "structured-data", priority: 1, canHandle: true, result: successResult("structured-data", 90)}

	// Registered out of order; priority must still decide.
	res := run(t, late, early)

	if res.Method != "structured-data" {
		t.Errorf("method = %s, want structured-data first", res.Method)
	}
	if late.calls != 0 {
		t.Error("llm tier should not run when tier 1 qualifies")
	}
}
