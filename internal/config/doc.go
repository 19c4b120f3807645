// Package config defines the application configuration structure and the
// viper-backed loader that populates it from defaults, an optional YAML
// config file, and NAVDECK_-prefixed environment variables.
package config
