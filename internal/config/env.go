package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// env reads typed settings from the process environment. Malformed values
// are collected instead of silently replaced by the default.
type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func newEnv() *env {
	return &env{lookup: os.LookupEnv}
}

func (e *env) raw(key string) (string, bool) {
	value, ok := e.lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func (e *env) fail(key, value string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s=%q: %w", key, value, err))
}

func (e *env) text(key, fallback string) string {
	if value, ok := e.lookup(key); ok {
		return value
	}
	return fallback
}

func (e *env) integer(key string, fallback int) int {
	value, ok := e.raw(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		e.fail(key, value, err)
		return fallback
	}
	return n
}

func (e *env) flag(key string, fallback bool) bool {
	value, ok := e.raw(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		e.fail(key, value, err)
		return fallback
	}
	return b
}

func (e *env) duration(key string, fallback time.Duration) time.Duration {
	value, ok := e.raw(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		e.fail(key, value, err)
		return fallback
	}
	return d
}

// list splits a comma separated value, dropping blank entries.
func (e *env) list(key string, fallback []string) []string {
	value, ok := e.raw(key)
	if !ok {
		return fallback
	}
	items := lo.Compact(lo.Map(strings.Split(value, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
	if len(items) == 0 {
		return fallback
	}
	return items
}
