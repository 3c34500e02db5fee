// Package panel is the runtime engine: it owns the active page, the
// pressed keys, the knob highlights and the buffered gauge samples, and
// turns device events and telemetry into paint calls and simulator
// commands.
//
// All state lives in State and is touched only by the goroutine running
// Controller.Run. Telemetry callbacks and highlight timers post messages
// to that goroutine instead of touching State themselves.
//
// A sample for a gauge key is written to its values array whatever page
// is showing; only the active page is repainted. Loading a page resets its
// gauges to "no sample" and paints placeholders until fresh data arrives.
package panel
