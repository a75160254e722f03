// Package logger создаёт zap-логер сервиса.
package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// New создаёт production-логер с указанным текстовым уровнем логирования.
func New(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	zl, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return zl, nil
}
