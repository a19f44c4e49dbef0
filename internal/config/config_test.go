package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, cfg.Database.WriterDSN, cfg.Database.ReaderDSN)
	assert.Equal(t, 5, cfg.Kitchen.PrepTimeMin)
	assert.Equal(t, 15, cfg.Kitchen.PrepTimeMax)
	assert.Equal(t, "/metrics", cfg.Observability.PrometheusPath)
	assert.Equal(t, 256, cfg.Messaging.PublishBuffer)
	assert.Equal(t, 5*time.Second, cfg.Messaging.PublishTimeout)
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", " SQLite ")
	t.Setenv("DB_WRITER_DSN", "file:orders.db")
	t.Setenv("KITCHEN_PREP_MIN", "1")
	t.Setenv("KITCHEN_PREP_MAX", "2")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("MESSAGING_ENABLED", "false")
	t.Setenv("CACHE_DEFAULT_TTL", "30s")
	t.Setenv("OBS_PROMETHEUS_PATH", "prom")
	t.Setenv("KAFKA_BROKERS", "a:9092, ,b:9092")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:orders.db", cfg.Database.ReaderDSN)
	assert.Equal(t, Kitchen{PrepTimeMin: 1, PrepTimeMax: 2}, cfg.Kitchen)
	assert.Equal(t, "noop", cfg.Cache.Driver)
	assert.Equal(t, "noop", cfg.Messaging.Driver)
	assert.Equal(t, 30*time.Second, cfg.Cache.DefaultTTL)
	assert.Equal(t, "/prom", cfg.Observability.PrometheusPath)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Messaging.Kafka.Brokers)
}

func TestNewRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "bad http port",
			env:     map[string]string{"HTTP_PORT": "0"},
			wantErr: "invalid HTTP port",
		},
		{
			name:    "unknown database driver",
			env:     map[string]string{"DB_DRIVER": "oracle"},
			wantErr: "unsupported database driver",
		},
		{
			name:    "negative preparation minimum",
			env:     map[string]string{"KITCHEN_PREP_MIN": "-1"},
			wantErr: "KITCHEN_PREP_MIN",
		},
		{
			name:    "empty preparation range",
			env:     map[string]string{"KITCHEN_PREP_MIN": "10", "KITCHEN_PREP_MAX": "10"},
			wantErr: "KITCHEN_PREP_MAX",
		},
		{
			name:    "unknown cache driver",
			env:     map[string]string{"CACHE_DRIVER": "memcached"},
			wantErr: "unsupported cache driver",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := New()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewRejectsMalformedValues(t *testing.T) {
	t.Setenv("HTTP_PORT", "eighty")
	t.Setenv("CACHE_DEFAULT_TTL", "5 minutes")

	_, err := New()
	require.Error(t, err)
	assert.ErrorContains(t, err, `HTTP_PORT="eighty"`)
	assert.ErrorContains(t, err, `CACHE_DEFAULT_TTL="5 minutes"`)
}

func TestNewReportsEveryProblem(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")
	t.Setenv("KITCHEN_PREP_MIN", "-3")

	_, err := New()
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported database driver")
	assert.ErrorContains(t, err, "KITCHEN_PREP_MIN must not be negative")
}

func TestEnvList(t *testing.T) {
	values := map[string]string{"BROKERS": " a:1 ,, b:2 ", "BLANK": " , "}
	e := &env{lookup: func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}}

	assert.Equal(t, []string{"a:1", "b:2"}, e.list("BROKERS", nil))
	assert.Equal(t, []string{"x"}, e.list("BLANK", []string{"x"}))
	assert.Equal(t, []string{"x"}, e.list("MISSING", []string{"x"}))
	assert.Empty(t, e.errs)
}
