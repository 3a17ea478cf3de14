package utils

import (
	"os"
	"strconv"
	"strings"

	"github.com/shopmind/shopmind-backend/internal/logger"
)

func GetEnv(name string, def string, log *logger.Logger) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		if log != nil {
			log.Debug("env var not set, using default", "name", name, "default", def)
		}
		return def
	}
	return v
}

func GetEnvAsInt(name string, def int, log *logger.Logger) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		if log != nil {
			log.Warn("env var is not an integer, using default", "name", name, "value", v)
		}
		return def
	}
	return i
}
