// Package prompt provides the system instruction given to every chat handle.
package prompt

import (
	_ "embed"
	"os"
	"strings"

	"go.uber.org/zap"
)

//go:embed system_prompt.txt
var defaultPrompt string

func Default() string { return strings.TrimSpace(defaultPrompt) }

// Load reads the system instruction from path. An empty path, an unreadable
// file or an empty file falls back to Default.
func Load(path string, logger *zap.Logger) string {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("system prompt unreadable, using built-in", zap.String("path", path), zap.Error(err))
		return Default()
	}
	s := strings.TrimSpace(string(data))
	if s == "" {
		logger.Warn("system prompt file is empty, using built-in", zap.String("path", path))
		return Default()
	}
	return s
}
