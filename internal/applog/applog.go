// Package applog builds the process-level structured logger used for
// startup errors, CGI failures and worker write failures. It is
// intentionally separate from the access log (internal/accesslog),
// which has its own fixed line format and destination.
package applog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger writing to stderr. In debug mode the console
// encoder is used (readable on a terminal); otherwise JSON, for
// machine-parseable production logs.
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
