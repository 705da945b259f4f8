// Package config lê a configuração dos binários: variáveis de ambiente, um .env
// opcional e um arquivo YAML opcional com o plano do lote (env sobrescreve o arquivo).
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"bus-scheduler/bus/domain"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Plan       domain.Plan
	ListenAddr string

	MaxConcurrentBatches int

	StatsBackend       string // "memory" ou "redis"
	StatsRedisAddr     string
	StatsRedisPassword string
	StatsRedisDB       int
	StatsPrefix        string
	StatsTTL           time.Duration
	StatsBucket        string
	StatsTrackBatches  bool

	TraceEnabled bool
	TraceFile    string

	LogLevel  slog.Level
	LogFormat string
}

// Load carrega ENV_FILE (padrão .env, ausência é ignorada), BATCH_FILE e o ambiente.
func Load() (Config, error) {
	if err := LoadDotEnv(getenvDefault("ENV_FILE", ".env")); err != nil {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	plan := domain.DefaultPlan()
	if path := os.Getenv("BATCH_FILE"); path != "" {
		p, err := LoadPlanFile(path, plan)
		if err != nil {
			return Config{}, err
		}
		plan = p
	}

	cfg := Config{}
	cfg.Plan = planFromEnv(plan)
	cfg.ListenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.MaxConcurrentBatches = getenvIntDefault("MAX_CONCURRENT_BATCHES", 4)

	cfg.StatsBackend = strings.ToLower(getenvDefault("STATS_BACKEND", "memory"))
	cfg.StatsRedisAddr = getenvDefault("STATS_REDIS_ADDR", "")
	cfg.StatsRedisPassword = os.Getenv("STATS_REDIS_PASSWORD")
	cfg.StatsRedisDB = getenvIntDefault("STATS_REDIS_DB", 0)
	cfg.StatsPrefix = getenvDefault("STATS_PREFIX", "bus:stats")
	cfg.StatsTTL = getenvDurationDefault("STATS_TTL", 24*time.Hour)
	cfg.StatsBucket = getenvDefault("STATS_BUCKET", "minute")
	cfg.StatsTrackBatches = getenvBoolDefault("STATS_TRACK_BATCHES", false)

	cfg.TraceEnabled = getenvBoolDefault("TRACE_ENABLED", false)
	cfg.TraceFile = os.Getenv("TRACE_FILE")

	cfg.LogFormat = strings.ToLower(getenvDefault("LOG_FORMAT", "text"))
	if err := cfg.LogLevel.UnmarshalText([]byte(getenvDefault("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.Plan.Validate(); err != nil {
		return err
	}
	switch c.StatsBackend {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.StatsRedisAddr) == "" {
			return errors.New("STATS_REDIS_ADDR is required when STATS_BACKEND=redis")
		}
	default:
		return fmt.Errorf("STATS_BACKEND must be memory or redis, got %q", c.StatsBackend)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.MaxConcurrentBatches < 0 {
		return errors.New("MAX_CONCURRENT_BATCHES must be >= 0")
	}
	return nil
}

func planFromEnv(p domain.Plan) domain.Plan {
	p.Capacity = getenvIntDefault("BUS_CAPACITY", p.Capacity)
	p.HighSend = getenvIntDefault("HIGH_SEND", p.HighSend)
	p.HighReceive = getenvIntDefault("HIGH_RECEIVE", p.HighReceive)
	p.NormalSend = getenvIntDefault("NORMAL_SEND", p.NormalSend)
	p.NormalReceive = getenvIntDefault("NORMAL_RECEIVE", p.NormalReceive)
	p.MaxTransfer = domain.Duration(getenvDurationDefault("MAX_TRANSFER", p.MaxTransfer.Std()))
	p.TransfersPerSecond = getenvFloatDefault("TRANSFER_RPS", p.TransfersPerSecond)
	p.Burst = getenvIntDefault("TRANSFER_BURST", p.Burst)
	p.AcquireTimeout = domain.Duration(getenvDurationDefault("ACQUIRE_TIMEOUT", p.AcquireTimeout.Std()))
	p.Seed = int64(getenvIntDefault("SEED", int(p.Seed)))
	return p
}

// LoadDotEnv carrega variáveis de path. Arquivo ausente é ignorado.
// Variáveis já presentes no ambiente não são sobrescritas.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// LoadPlanFile decodifica um plano YAML sobre base. Campos desconhecidos são erro.
func LoadPlanFile(path string, base domain.Plan) (domain.Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Plan{}, fmt.Errorf("open batch file: %w", err)
	}
	defer func() { _ = f.Close() }()

	plan := base
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&plan); err != nil && !errors.Is(err, io.EOF) {
		return domain.Plan{}, fmt.Errorf("decode batch file %s: %w", path, err)
	}
	return plan, nil
}

// NewLogger cria o logger dos binários no formato "text" ou "json".
func NewLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
