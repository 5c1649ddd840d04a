// Package config handles configuration loading for rail-scout.
//
// # Configuration File
//
// The file is YAML, or TOML when its name ends in ".toml". Lookup order:
//
//  1. Path from the RAIL_SCOUT_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/rail-scout/config.yaml
//  3. ~/.config/rail-scout/config.yaml
//
// # Environment Variable Expansion
//
// Values can reference environment variables, which keeps the bot token
// out of the file:
//
//	telegram:
//	  token: "${RAIL_SCOUT_TELEGRAM_TOKEN}"
//
// Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Durations use time.ParseDuration syntax:
//
//	rzd:
//	  poll_interval: "2s"
//	  request_timeout: "30s"
//
// # Defaults
//
// Every rzd setting has a default matching the public RZD endpoints, so a
// minimal file only needs the telegram token. Storage defaults to Badger
// under $XDG_DATA_HOME/rail-scout.
package config
