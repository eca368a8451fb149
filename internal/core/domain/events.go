package domain

import "time"

// TransitionPath labels how a view-state request was served.
type TransitionPath string

const (
	// TransitionFast reused materialized data; only the visible month
	// changed.
	TransitionFast TransitionPath = "fast"
	// TransitionCold fetched bounds and raster data and replaced the
	// current source/layer pair.
	TransitionCold TransitionPath = "cold"
	// TransitionOpacityControl entered or stayed in opacity-control mode.
	TransitionOpacityControl TransitionPath = "opacity_control"
	// TransitionTeardown removed the current layer on a "no data" request.
	TransitionTeardown TransitionPath = "teardown"
	// TransitionNoop left the surface untouched.
	TransitionNoop TransitionPath = "noop"
)

// TransitionEvent is published after every applied view-state transition.
type TransitionEvent struct {
	Path TransitionPath `json:"path"`
	Key  *LayerKey      `json:"key,omitempty"`
	At   time.Time      `json:"at"`
}
