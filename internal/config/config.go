package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/timely/timetabling/pkg/model"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env  string
	Port int

	CORS   CORSConfig
	Log    LogConfig
	Solver SolverConfig
	Model  ModelConfig
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SolverConfig selects the engine and bounds how long and how many solves run.
type SolverConfig struct {
	Engine        string
	ExternalPath  string
	TimeBudget    time.Duration
	MaxConcurrent int
}

// ModelConfig overrides the default model weights.
type ModelConfig struct {
	StrictTimeslots     bool
	EarlyLabWeight      int
	WorkloadWeight      int
	MorningWeight       int
	PreferredRoomWeight int
	GapPriorityScale    float64
}

// Options returns the model options with the configured overrides applied.
func (m ModelConfig) Options() model.Options {
	options := model.DefaultOptions()
	options.StrictTimeslots = m.StrictTimeslots
	options.EarlyLabWeight = m.EarlyLabWeight
	options.WorkloadWeight = m.WorkloadWeight
	options.MorningWeight = m.MorningWeight
	options.PreferredRoomWeight = m.PreferredRoomWeight
	options.GapPriorityScale = m.GapPriorityScale
	return options
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("CORS_ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxConcurrent := v.GetInt("SOLVER_MAX_CONCURRENT")
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	cfg.Solver = SolverConfig{
		Engine:        v.GetString("SOLVER_ENGINE"),
		ExternalPath:  v.GetString("SOLVER_EXTERNAL_PATH"),
		TimeBudget:    parseDuration(v.GetString("SOLVER_TIME_BUDGET"), 30*time.Second),
		MaxConcurrent: maxConcurrent,
	}

	cfg.Model = ModelConfig{
		StrictTimeslots:     v.GetBool("STRICT_TIMESLOTS"),
		EarlyLabWeight:      v.GetInt("WEIGHT_EARLY_LAB"),
		WorkloadWeight:      v.GetInt("WEIGHT_WORKLOAD"),
		MorningWeight:       v.GetInt("WEIGHT_MORNING"),
		PreferredRoomWeight: v.GetInt("WEIGHT_PREFERRED_ROOM"),
		GapPriorityScale:    v.GetFloat64("GAP_PRIORITY_SCALE"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := model.DefaultOptions()

	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 5000)

	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SOLVER_ENGINE", "gophersat")
	v.SetDefault("SOLVER_EXTERNAL_PATH", "")
	v.SetDefault("SOLVER_TIME_BUDGET", "30s")
	v.SetDefault("SOLVER_MAX_CONCURRENT", 2)

	v.SetDefault("STRICT_TIMESLOTS", false)
	v.SetDefault("WEIGHT_EARLY_LAB", defaults.EarlyLabWeight)
	v.SetDefault("WEIGHT_WORKLOAD", defaults.WorkloadWeight)
	v.SetDefault("WEIGHT_MORNING", defaults.MorningWeight)
	v.SetDefault("WEIGHT_PREFERRED_ROOM", defaults.PreferredRoomWeight)
	v.SetDefault("GAP_PRIORITY_SCALE", defaults.GapPriorityScale)
}

// isMissingFile reports a .env file that does not exist; viper only returns
// ConfigFileNotFoundError when searching config paths.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
