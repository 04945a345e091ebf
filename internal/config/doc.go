// Package config loads fanout settings.
//
// Later layers override earlier ones:
//
//	defaults
//	user file      ~/.fanout/fanout.toml, else <os.UserConfigDir>/fanout/fanout.toml
//	project file   fanout.toml or .fanout.toml in the working directory
//	environment    FANOUT_*
//	flags
//
// Unknown TOML keys are an error. Validation failures wrap
// parallel.ErrInvalidConfig.
package config
