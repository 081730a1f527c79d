// Package movement summarises the derived kinematics of one entity:
// distance totals, sprint distance, peak speed, sprint events, the
// possession split and mean position. It also exposes the sprint overlays
// (contiguous segments and per-sample vectors) used by the map renderers.
//
// A sample is sprinting when its speed is defined and strictly above the
// threshold. An undefined speed is never sprinting.
package movement
