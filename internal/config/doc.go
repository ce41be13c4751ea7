// Package config loads and validates the engine configuration.
//
// Configuration is a YAML file with ${VAR} environment substitution,
// followed by default application and validation. It is loaded once at
// startup and treated as immutable afterwards.
package config
