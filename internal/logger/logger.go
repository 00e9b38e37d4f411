package logger

import (
	"strings"

	"go.uber.org/zap"
)

// New builds the process logger. Production environments get JSON output,
// everything else the human readable development encoder.
func New(env string) (*zap.Logger, error) {
	switch strings.ToLower(env) {
	case "prod", "production":
		return zap.NewProduction()
	default:
		return zap.NewDevelopment()
	}
}
