package overlay

import (
	"time"

	"github.com/gogpu/overlay/atlas"
	"github.com/gogpu/overlay/lease"
)

// RenderHost is the rendering backend collaborator.
//
// The host owns the device, swapchain, and shared font handles. It
// calls [Dispatcher.Draw] once per rendered frame and
// [Dispatcher.ResizeBuffers] when the render target resizes. The shared
// handles are only valid once SceneReady reports true.
type RenderHost interface {
	// SceneReady reports whether the shared rendering scene is
	// established.
	SceneReady() bool

	// DefaultFont returns the host's default shared font handle.
	DefaultFont() lease.Resource

	// IconFont returns the host's icon font handle.
	IconFont() lease.Resource

	// MonoFont returns the host's monospace font handle.
	MonoFont() lease.Resource

	// FixedIconFont returns the host's fixed-width icon font handle.
	FixedIconFont() lease.Resource

	// Resource looks up a named shared resource (textures, extra
	// fonts). The boolean reports whether the name is known.
	Resource(name string) (lease.Resource, bool)
}

// ConditionSource supplies the suppression predicates, queried once per
// draw tick.
type ConditionSource interface {
	// UserHidden reports whether the user has toggled the game UI away.
	UserHidden() bool

	// InCutscene reports whether a cutscene is playing.
	InCutscene() bool

	// InGPose reports whether group-pose mode is active.
	InGPose() bool
}

// Settings supplies the global hide toggles and diagnostics thresholds.
// The config package's Store implements Settings.
type Settings interface {
	// AutoHideEnabled gates the user-toggle predicate globally.
	AutoHideEnabled() bool

	// HideDuringCutscene gates the cutscene predicate globally.
	HideDuringCutscene() bool

	// HideDuringGPose gates the gpose predicate globally.
	HideDuringGPose() bool

	// HitchThreshold is the tick-to-tick gap above which a session is
	// logged as hitching. Zero disables hitch logging.
	HitchThreshold() time.Duration
}

// ErrorPresenter draws the minimal acknowledgment dialog for a faulted
// session. It runs on the render tick, so implementations draw
// immediate-mode widgets and return whether the user dismissed the
// dialog this frame.
type ErrorPresenter interface {
	PresentError(namespace string, err error) (dismissed bool)
}

// FontAtlas is the per-session private atlas as the dispatcher sees it.
// *atlas.Atlas satisfies FontAtlas; a built-in always-ready stub is
// used when no engine is configured.
type FontAtlas interface {
	Name() string
	BuildState() atlas.BuildState
	Built() bool
	Rebuild()
	Dispose()
}

// AtlasEngine creates per-session font atlases. *atlas.Engine satisfies
// AtlasEngine via the engineAdapter in options.go.
type AtlasEngine interface {
	CreateAtlas(name string, mode atlas.RebuildMode, globalScaled bool) (FontAtlas, error)
}

// defaultSettings is used when no Settings collaborator is supplied:
// all hide toggles on, hitch logging at 250ms.
type defaultSettings struct{}

func (defaultSettings) AutoHideEnabled() bool         { return true }
func (defaultSettings) HideDuringCutscene() bool      { return true }
func (defaultSettings) HideDuringGPose() bool         { return true }
func (defaultSettings) HitchThreshold() time.Duration { return 250 * time.Millisecond }

// readyAtlas is the built-in FontAtlas used when no engine is
// configured. It reports an immediately successful build so sessions
// draw without a real font pipeline (tests, headless hosts).
type readyAtlas struct{ name string }

func (a *readyAtlas) Name() string                 { return a.name }
func (a *readyAtlas) BuildState() atlas.BuildState { return atlas.BuildSucceeded }
func (a *readyAtlas) Built() bool                  { return true }
func (a *readyAtlas) Rebuild()                     {}
func (a *readyAtlas) Dispose()                     {}
