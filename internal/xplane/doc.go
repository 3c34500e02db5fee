// Package xplane is a client for the X-Plane 12 web API.
//
// Names are resolved to numeric ids over REST and cached for the life of
// the client:
//
//	GET /api/v2/datarefs?filter[name]=sim/cockpit2/gauges/indicators/airspeed_kts_pilot
//	GET /api/v2/commands?filter[name]=sim/autopilot/heading_up
//
// Values and commands travel over a single WebSocket at /api/v2. The
// client redials it when it drops and replays every subscription, so
// callers subscribe once per process.
//
// A subscription name may carry an array index, "sim/flightmodel/engine/
// ENGN_N1_[0]". The whole array is subscribed and the element picked on
// arrival; several indices of one dataref share a server subscription.
//
// Errors are *ClientError values classified by ErrorType; IsRetryable
// drives the lookup retry loop.
package xplane
