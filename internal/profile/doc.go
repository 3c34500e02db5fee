// Package profile loads the page configuration that drives the panel.
//
// A profile is a list of pages. Each page has up to 12 key slots laid out
// in a 4x3 grid, optional left and right side strips of three knob slots,
// an optional accent colour and an optional default marker.
//
// # File Formats
//
// YAML profiles may be a bare list of pages or a mapping with a "pages"
// entry:
//
//	- name: engine
//	  color: "#00ff88"
//	  default: 0
//	  left:
//	    - text: HDG
//	      inc: {xplane_cmd: sim/autopilot/heading_up}
//	      dec: {xplane_cmd: sim/autopilot/heading_down}
//	  keys:
//	    - text: AP
//	      pressed: {xplane_cmd: sim/autopilot/servos_toggle}
//	    - display:
//	        type: meter
//	        min: 0
//	        max: 100
//	        source:
//	          - xplane_dataref: sim/cockpit2/engine/indicators/N1_percent[0]
//	    - ~
//	    - FLAPS
//
// TOML profiles use an array of tables:
//
//	[[pages]]
//	name = "engine"
//	keys = [
//	  { text = "AP", pressed = { xplane_cmd = "sim/autopilot/servos_toggle" } },
//	  {},
//	  "FLAPS",
//	]
//
// # Leniency
//
// Loading only fails when the file cannot be read or is not valid YAML or
// TOML. A key that cannot be understood becomes an empty slot and an
// unknown gauge type renders nothing; both are recorded in
// Profile.Warnings so `xpdeck validate` can report them.
package profile
