// Package logging provides structured logging for minergate.
//
// It wraps log/slog with JSON or text output, level filtering and default
// service/version attributes. Components derive child loggers:
//
//	logger := logging.New(cfg.Logging, version)
//	fleetLog := logger.Component("fleet")
//	fleetLog.Info("scan completed", "hosts", 254)
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Never log MQTT passwords or InfluxDB tokens.
package logging
