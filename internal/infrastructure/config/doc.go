// Package config loads daemon configuration from environment variables.
//
// All knobs carry defaults, so a bare `termd` starts without any
// environment. The interrupt debounce window is configuration rather
// than a constant: the 500ms default is product tuning, not a
// correctness bound.
package config
