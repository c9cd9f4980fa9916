// Package config handles loading and validating minergate configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (MINERGATE_SECTION_KEY)
//   - Validation of required fields
//   - Default value handling
//
// Secrets (MQTT password, InfluxDB token) should be set via environment
// variables rather than committed to the config file.
//
// Usage:
//
//	cfg, err := config.Load(config.PathFromEnv())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Gateway.Name)
package config
