package overlay

// VisibilityState is a session's overlay visibility.
type VisibilityState int

const (
	// Shown means the session's draw handler runs each tick.
	Shown VisibilityState = iota

	// Hidden means drawing is suppressed by an active predicate.
	Hidden
)

// String returns the state name for logs.
func (s VisibilityState) String() string {
	if s == Hidden {
		return "hidden"
	}
	return "shown"
}

// visibilityEdge is the transition produced by one evaluation.
type visibilityEdge int

const (
	edgeNone visibilityEdge = iota
	edgeHidden
	edgeShown
)

// VisibilityOptions are the per-session suppression disables.
// Each flag opts the session out of one predicate; DisableAutomatic
// opts out of all of them.
type VisibilityOptions struct {
	DisableAutomatic      bool
	DisableUserToggle     bool
	DisableDuringCutscene bool
	DisableDuringGPose    bool
}

// visibilityInputs are the suppression predicates for one tick,
// already gated by the global Settings toggles.
type visibilityInputs struct {
	userHidden bool
	inCutscene bool
	inGPose    bool
}

// visibilityMachine tracks one session's shown/hidden state and
// produces edge-triggered transitions.
//
// The machine is only touched from the render tick, so it needs no
// locking of its own; the session guards the options snapshot.
type visibilityMachine struct {
	hidden bool // last recorded state; zero value = Shown
}

// state returns the last recorded state.
func (m *visibilityMachine) state() VisibilityState {
	if m.hidden {
		return Hidden
	}
	return Shown
}

// evaluate applies the suppression condition for one tick and records
// the new state. The returned edge is edgeHidden or edgeShown exactly
// once per transition, edgeNone while the condition is steady.
func (m *visibilityMachine) evaluate(in visibilityInputs, opt VisibilityOptions) (suppressed bool, edge visibilityEdge) {
	suppressed = in.userHidden && !(opt.DisableUserToggle || opt.DisableAutomatic) ||
		in.inCutscene && !(opt.DisableDuringCutscene || opt.DisableAutomatic) ||
		in.inGPose && !(opt.DisableDuringGPose || opt.DisableAutomatic)

	switch {
	case suppressed && !m.hidden:
		m.hidden = true
		return true, edgeHidden
	case !suppressed && m.hidden:
		m.hidden = false
		return false, edgeShown
	default:
		return suppressed, edgeNone
	}
}
