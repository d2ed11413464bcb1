// Package config provides configuration for sitescribe.
//
// Configuration comes from three layers, later layers overriding earlier ones:
//  1. Defaults from NewConfig
//  2. The YAML configuration file (per-site settings)
//  3. CLI flags
//
// The resulting Config is validated once with Validate and then passed
// explicitly to the components that need it.
//
// # Configuration file
//
// The file is looked up at the --config path, ./.sitescribe, or
// $XDG_CONFIG_HOME/sitescribe/config.yaml:
//
//	defaults:
//	  headers:
//	    Accept-Language: en-US
//	sites:
//	  docs.example.com:
//	    depth: 3
//	    cookie: "session=abc"
//	    ignorePatterns: ["/blog/*", "*.pdf"]
package config
