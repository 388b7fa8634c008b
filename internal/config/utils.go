package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// parsedEnv reads key and runs it through parse; unset, empty, or
// unparseable values fall back silently so a bad override cannot keep
// the process from booting.
func parsedEnv[T any](key string, parse func(string) (T, error), fallback T) T {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	value, err := parse(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	return parsedEnv(key, strconv.Atoi, fallback)
}

func getEnvAsBool(key string, fallback bool) bool {
	return parsedEnv(key, strconv.ParseBool, fallback)
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	return parsedEnv(key, time.ParseDuration, fallback)
}

func getEnvAsStringSlice(key string, fallback []string) []string {
	return parsedEnv(key, parseCSV, fallback)
}

func parseCSV(raw string) ([]string, error) {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return nil, strconv.ErrSyntax
	}
	return values, nil
}
