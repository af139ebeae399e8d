package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// loader reads typed values from the environment and keeps every parse error
// so Load can report them all at once.
type loader struct {
	errs []error
}

func (l *loader) err() error {
	return errors.Join(l.errs...)
}

func (l *loader) fail(key, kind, value string) {
	l.errs = append(l.errs, errors.New("invalid "+kind+" for "+key+": "+value))
}

func (l *loader) getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func (l *loader) getInt(key string, defaultValue int) int {
	value := l.getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		l.fail(key, "int", value)
		return defaultValue
	}
	return n
}

func (l *loader) getBool(key string, defaultValue bool) bool {
	value := l.getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		l.fail(key, "bool", value)
		return defaultValue
	}
	return b
}

func (l *loader) getDuration(key string, defaultValue time.Duration) time.Duration {
	value := l.getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		l.fail(key, "duration", value)
		return defaultValue
	}
	return d
}

func (l *loader) getList(key string) []string {
	var out []string
	for _, part := range strings.Split(l.getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (l *loader) oneOf(key, defaultValue string, allowed ...string) string {
	value := strings.ToLower(l.getEnv(key, defaultValue))
	for _, a := range allowed {
		if value == a {
			return value
		}
	}
	l.fail(key, "value (want one of "+strings.Join(allowed, ", ")+")", value)
	return defaultValue
}
