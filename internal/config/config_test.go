package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timely/timetabling/pkg/model"
)

func TestLoad(t *testing.T) {
	t.Run("Falls back to defaults", func(t *testing.T) {
		//** Arrange
		t.Chdir(t.TempDir())

		//** Act
		cfg, err := Load()

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, EnvDevelopment, cfg.Env)
		assert.Equal(t, 5000, cfg.Port)
		assert.Equal(t, "gophersat", cfg.Solver.Engine)
		assert.Equal(t, 30*time.Second, cfg.Solver.TimeBudget)
		assert.Equal(t, model.DefaultOptions(), cfg.Model.Options())
	})

	t.Run("Reads overrides from the environment", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("SOLVER_TIME_BUDGET", "5s")
		t.Setenv("SOLVER_MAX_CONCURRENT", "0")
		t.Setenv("WEIGHT_MORNING", "7")
		t.Setenv("STRICT_TIMESLOTS", "true")
		t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, cfg.Solver.TimeBudget)
		assert.Equal(t, 1, cfg.Solver.MaxConcurrent)
		assert.Equal(t, 7, cfg.Model.Options().MorningWeight)
		assert.True(t, cfg.Model.Options().StrictTimeslots)
		assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	})

	t.Run("Ignores malformed durations", func(t *testing.T) {
		assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
		assert.Nil(t, splitAndTrim(""))
	})
}
