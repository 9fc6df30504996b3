package overlay

import "github.com/gogpu/overlay/atlas"

// DispatcherOption configures a Dispatcher during creation.
// Use functional options to wire in the optional collaborators.
//
// Example:
//
//	// Minimal dispatcher for a headless host
//	d := overlay.NewDispatcher(host)
//
//	// Full wiring
//	d := overlay.NewDispatcher(host,
//	    overlay.WithConditions(oracle),
//	    overlay.WithSettings(store),
//	    overlay.WithAtlasEngine(overlay.UseAtlasEngine(engine)),
//	    overlay.WithErrorPresenter(presenter))
type DispatcherOption func(*Dispatcher)

// WithConditions supplies the suppression-predicate oracle.
// Without it, no overlay is ever suppressed.
func WithConditions(c ConditionSource) DispatcherOption {
	return func(d *Dispatcher) {
		d.conditions = c
	}
}

// WithSettings supplies the global hide toggles and hitch threshold,
// typically a *config.Store. Without it, all hide toggles are on and
// hitch logging uses a 250ms threshold.
func WithSettings(s Settings) DispatcherOption {
	return func(d *Dispatcher) {
		if s != nil {
			d.settings = s
		}
	}
}

// WithAtlasEngine supplies the font-atlas engine used to create each
// session's private atlas. Without it, sessions get an always-ready
// stub atlas, which suits tests and hosts without a font pipeline.
func WithAtlasEngine(e AtlasEngine) DispatcherOption {
	return func(d *Dispatcher) {
		d.engine = e
	}
}

// WithErrorPresenter supplies the dialog renderer for faulted
// sessions. Without it, the error banner stays raised until the
// session calls AcknowledgeError.
func WithErrorPresenter(p ErrorPresenter) DispatcherOption {
	return func(d *Dispatcher) {
		d.presenter = p
	}
}

// UseAtlasEngine adapts *atlas.Engine to the AtlasEngine interface.
//
// Example:
//
//	engine, err := atlas.NewEngine(fontData)
//	if err != nil {
//	    return err
//	}
//	d := overlay.NewDispatcher(host,
//	    overlay.WithAtlasEngine(overlay.UseAtlasEngine(engine)))
func UseAtlasEngine(e *atlas.Engine) AtlasEngine {
	return engineAdapter{e}
}

// engineAdapter narrows *atlas.Engine's CreateAtlas return type to the
// FontAtlas interface.
type engineAdapter struct {
	engine *atlas.Engine
}

func (a engineAdapter) CreateAtlas(name string, mode atlas.RebuildMode, globalScaled bool) (FontAtlas, error) {
	return a.engine.CreateAtlas(name, mode, globalScaled)
}
