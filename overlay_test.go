package overlay

import (
	"sync"
	"time"

	"github.com/gogpu/overlay/lease"
)

// fakeHost is a RenderHost with switchable scene readiness and
// Shared-backed font handles.
type fakeHost struct {
	mu        sync.Mutex
	ready     bool
	def       *lease.Shared
	icon      *lease.Shared
	mono      *lease.Shared
	fixedIcon *lease.Shared
	resources map[string]*lease.Shared
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		def:       lease.NewShared(),
		icon:      lease.NewShared(),
		mono:      lease.NewShared(),
		fixedIcon: lease.NewShared(),
		resources: make(map[string]*lease.Shared),
	}
}

func (h *fakeHost) setReady(ready bool) {
	h.mu.Lock()
	h.ready = ready
	h.mu.Unlock()
}

func (h *fakeHost) SceneReady() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ready
}

func (h *fakeHost) DefaultFont() lease.Resource   { return h.def }
func (h *fakeHost) IconFont() lease.Resource      { return h.icon }
func (h *fakeHost) MonoFont() lease.Resource      { return h.mono }
func (h *fakeHost) FixedIconFont() lease.Resource { return h.fixedIcon }

func (h *fakeHost) Resource(name string) (lease.Resource, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.resources[name]
	return r, ok
}

// fakeConditions is a ConditionSource with settable predicates.
type fakeConditions struct {
	mu       sync.Mutex
	user     bool
	cutscene bool
	gpose    bool
}

func (c *fakeConditions) set(user, cutscene, gpose bool) {
	c.mu.Lock()
	c.user, c.cutscene, c.gpose = user, cutscene, gpose
	c.mu.Unlock()
}

func (c *fakeConditions) UserHidden() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

func (c *fakeConditions) InCutscene() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cutscene
}

func (c *fakeConditions) InGPose() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gpose
}

// fakeSettings is a Settings implementation with adjustable toggles.
type fakeSettings struct {
	auto     bool
	cutscene bool
	gpose    bool
	hitch    time.Duration
}

func allOnSettings() *fakeSettings {
	return &fakeSettings{auto: true, cutscene: true, gpose: true}
}

func (s *fakeSettings) AutoHideEnabled() bool         { return s.auto }
func (s *fakeSettings) HideDuringCutscene() bool      { return s.cutscene }
func (s *fakeSettings) HideDuringGPose() bool         { return s.gpose }
func (s *fakeSettings) HitchThreshold() time.Duration { return s.hitch }

// pendingAtlas is a FontAtlas that never finishes building, for
// testing the atlas gate.
type pendingAtlas struct{ readyAtlas }

func (a *pendingAtlas) Built() bool { return false }

// fakePresenter records PresentError calls and can dismiss.
type fakePresenter struct {
	calls   int
	lastNS  string
	dismiss bool
}

func (p *fakePresenter) PresentError(namespace string, err error) bool {
	p.calls++
	p.lastNS = namespace
	return p.dismiss
}
