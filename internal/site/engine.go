package site

import (
	"context"

	"github.com/sells-group/dealer-scout/internal/model"
)

// Engine wires controller, discovery, and extractor into the per-postal-code
// collection flow consumed by the run coordinator.
type Engine struct {
	controller *Controller
	discovery  *Discovery
	extractor  *Extractor
	page       Page
}

// NewEngine assembles the site layer around one page.
func NewEngine(page Page, controller *Controller, discovery *Discovery, extractor *Extractor) *Engine {
	return &Engine{
		controller: controller,
		discovery:  discovery,
		extractor:  extractor,
		page:       page,
	}
}

// Collect drives the page to results for criteria and emits one record per
// discovered unit. Emit errors abort the iteration; extraction itself never
// errors; unresolved fields surface as nulls.
func (e *Engine) Collect(ctx context.Context, criteria model.SearchCriteria, emit func(*model.Record) error) error {
	if err := e.controller.EnsureResults(ctx, criteria); err != nil {
		return err
	}

	sourceURL, err := e.page.Location(ctx)
	if err != nil {
		sourceURL = ""
	}

	return e.discovery.Discover(ctx, func(scope Scope) error {
		return emit(e.extractor.Extract(ctx, scope, criteria, sourceURL))
	})
}
