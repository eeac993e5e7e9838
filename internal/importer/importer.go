// Package importer is the top-level import service: it fetches pages, runs
// the extraction cascade and persists whatever qualifies.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/ladle-dev/ladle/internal/extract"
	"github.com/ladle-dev/ladle/internal/fetch"
	"github.com/ladle-dev/ladle/internal/logging"
	"github.com/ladle-dev/ladle/internal/model"
	"github.com/ladle-dev/ladle/internal/store"
)

// Importer wires the fetcher, the cascade and the store into the two
// public import operations.
type Importer struct {
	fetcher      *fetch.Fetcher
	orchestrator *extract.Orchestrator
	store        *store.Store
	logger       logging.Logger
}

// New creates an Importer. The store may be nil, in which case successful
// imports are returned but not persisted.
func New(fetcher *fetch.Fetcher, orchestrator *extract.Orchestrator, st *store.Store, logger logging.Logger) (*Importer, error) {
	if fetcher == nil {
		return nil, errors.New("importer: fetcher is nil")
	}
	if orchestrator == nil {
		return nil, errors.New("importer: orchestrator is nil")
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Importer{
		fetcher:      fetcher,
		orchestrator: orchestrator,
		store:        st,
		logger:       logger.With(logging.Field{Key: "component", Value: "importer"}),
	}, nil
}

// ImportFromURL fetches the page and runs it through the cascade. When
// skipDirectFetch is set the page is never requested and the caller goes
// straight to manual entry; sites known to block bots use this path.
func (i *Importer) ImportFromURL(ctx context.Context, url, userID string, skipDirectFetch bool, opts model.ExtractOptions) *model.ImportResult {
	if strings.TrimSpace(url) == "" {
		return &model.ImportResult{Status: model.ImportFailed, Warnings: []string{"url is required"}}
	}

	if skipDirectFetch {
		i.logger.Info("direct fetch skipped by request", logging.Field{Key: "url", Value: url})
		return &model.ImportResult{
			Status:   model.ImportManualRequired,
			Warnings: []string{"automatic fetching was skipped for this URL"},
		}
	}

	html, err := i.fetcher.Page(ctx, url)
	if err != nil {
		if errors.Is(err, fetch.ErrBlocked) {
			return &model.ImportResult{
				Status:   model.ImportManualRequired,
				Warnings: []string{err.Error(), "the website blocks automated access; paste the recipe text instead"},
			}
		}
		return &model.ImportResult{Status: model.ImportFailed, Warnings: []string{err.Error()}}
	}

	result := i.orchestrator.Run(ctx, &model.ExtractorInput{
		HTML:      html,
		SourceURL: url,
		Options:   opts,
	})
	i.finish(ctx, result, url, userID)
	return result
}

// ImportFromText runs pasted recipe text through the cascade. Only the
// language-model tier handles raw text, so the structured tiers decline
// and the cascade reaches it directly.
func (i *Importer) ImportFromText(ctx context.Context, content, sourceURL, userID string, opts model.ExtractOptions) *model.ImportResult {
	if strings.TrimSpace(content) == "" {
		return &model.ImportResult{Status: model.ImportFailed, Warnings: []string{"content is required"}}
	}

	result := i.orchestrator.Run(ctx, &model.ExtractorInput{
		Content:   content,
		SourceURL: sourceURL,
		Options:   opts,
	})
	i.finish(ctx, result, sourceURL, userID)
	return result
}

// finish persists a successful result and records import history. Storage
// failures downgrade nothing; the extracted recipe is still returned with
// a warning attached.
func (i *Importer) finish(ctx context.Context, result *model.ImportResult, sourceURL, userID string) {
	if i.store == nil || result.Status != model.ImportSuccess || result.Recipe == nil {
		return
	}

	result.Recipe.SourceURL = sourceURL
	instructionsText := strings.Join(result.Recipe.Instructions, "\n")

	if sourceURL != "" {
		if w := i.reimportWarning(ctx, sourceURL, instructionsText); w != "" {
			result.Warnings = append(result.Warnings, w)
		}
	}

	id, err := i.store.SaveRecipe(ctx, userID, result.Recipe)
	if err != nil {
		i.logger.Error("persist failed", logging.Field{Key: "error", Value: err.Error()})
		result.Warnings = append(result.Warnings, fmt.Sprintf("recipe extracted but not saved: %v", err))
		return
	}
	result.RecipeID = id

	if err := i.store.RecordImport(ctx, sourceURL, result.Method, result.Confidence, instructionsText, id); err != nil {
		i.logger.Warn("import history write failed", logging.Field{Key: "error", Value: err.Error()})
	}
}

// reimportWarning compares the new instructions against the previous
// import of the same URL and describes the drift, if any.
func (i *Importer) reimportWarning(ctx context.Context, sourceURL, instructionsText string) string {
	prev, err := i.store.LastImportInstructions(ctx, sourceURL)
	if err != nil {
		i.logger.Warn("import history read failed", logging.Field{Key: "error", Value: err.Error()})
		return ""
	}
	if prev == "" {
		return ""
	}
	if prev == instructionsText {
		return "this URL was imported before with identical instructions"
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(prev, instructionsText, false)
	var added, removed int
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += len(d.Text)
		case diffmatchpatch.DiffDelete:
			removed += len(d.Text)
		}
	}
	return fmt.Sprintf("this URL was imported before; instructions changed since then (+%d/-%d characters)", added, removed)
}
