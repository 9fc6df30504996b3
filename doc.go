// Package overlay coordinates per-plugin UI overlays inside a host's
// shared immediate-mode frame loop.
//
// # Overview
//
// A host application owns a single render thread and frame loop. Many
// independent plugins want to draw overlay windows inside that frame
// without direct access to the rendering device, font system, or
// texture pipeline. The overlay package multiplexes the host's draw
// and resize events to N isolated plugin sessions:
//
//   - [Dispatcher] is the single process-wide fan-out point: the host
//     calls Draw once per frame and ResizeBuffers on resize.
//   - [Session] is one plugin's overlay context: handler subscriptions,
//     a private font atlas, and non-owning leases over shared
//     resources.
//   - The visibility machine hides sessions while suppression
//     predicates (user toggle, cutscene, group pose) hold, with
//     edge-triggered Show/Hide notifications.
//   - A panic in one plugin's draw handler is recovered and converted
//     into an error banner for that session; the frame loop and every
//     other session continue untouched.
//
// # Example
//
//	d := overlay.NewDispatcher(host,
//	    overlay.WithConditions(oracle),
//	    overlay.WithSettings(store))
//
//	session, err := d.Register("myplugin")
//	if err != nil {
//	    return err
//	}
//	session.SetDrawHandler(func() {
//	    // immediate-mode drawing, once per frame
//	})
//	defer session.Dispose()
//
//	// host render loop, once per frame:
//	d.Draw()
//
// Sub-packages: lease (non-owning shared-resource handles), atlas
// (async per-session font atlases), texload (texture decoding),
// future (promise/future plumbing), config (viper-backed settings).
package overlay
