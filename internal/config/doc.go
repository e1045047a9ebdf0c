// Package config loads the YAML configuration shared by the calibrate and
// simulate binaries. ${VAR} references are expanded from the environment
// before parsing.
package config
