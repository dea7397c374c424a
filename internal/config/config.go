/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	// Zone data for hosts without a zoneinfo database.
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/diagridio/go-shell-cron/internal/scheduler"
)

// Backend names a history sink implementation.
type Backend string

const (
	BackendFile     Backend = "file"
	BackendMemory   Backend = "memory"
	BackendETCD     Backend = "etcd"
	BackendRedis    Backend = "redis"
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "CROND_"

// DefaultHomeDir is the directory, relative to the user's home, holding the
// job file, history and logs.
const DefaultHomeDir = "job_scheduler"

// Config is the daemon configuration.
type Config struct {
	// Home is the directory relative paths default into.
	Home string `yaml:"home"`

	// JobsFile is the job definition file. Defaults to <home>/jobs.
	JobsFile string `yaml:"jobs_file"`

	Log       Log       `yaml:"log"`
	History   History   `yaml:"history"`
	Scheduler Scheduler `yaml:"scheduler"`
	Runner    Runner    `yaml:"runner"`
	Metrics   Metrics   `yaml:"metrics"`
}

type Log struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level"`

	// File is the log file. Defaults to <home>/logs. Empty after Resolve only
	// when ToFile is false.
	File string `yaml:"file"`

	// ToFile enables the log file in addition to the console.
	ToFile bool `yaml:"to_file"`

	// MaxSizeMB is the size at which the log file is rotated.
	MaxSizeMB int `yaml:"max_size_mb"`

	// MaxBackups is the number of rotated log files kept.
	MaxBackups int `yaml:"max_backups"`
}

type History struct {
	Backend Backend `yaml:"backend"`

	// Lowercase writes status tokens in lower case.
	Lowercase bool `yaml:"lowercase"`

	// AppendTimeout bounds each append.
	AppendTimeout time.Duration `yaml:"append_timeout"`

	File     HistoryFile     `yaml:"file"`
	ETCD     HistoryETCD     `yaml:"etcd"`
	Redis    HistoryRedis    `yaml:"redis"`
	Postgres HistoryPostgres `yaml:"postgres"`
	SQLite   HistorySQLite   `yaml:"sqlite"`
}

type HistoryFile struct {
	// Path defaults to <home>/history.
	Path string `yaml:"path"`

	NoSync bool `yaml:"no_sync"`
}

type HistoryETCD struct {
	Endpoints   []string      `yaml:"endpoints"`
	Namespace   string        `yaml:"namespace"`
	ID          string        `yaml:"id"`
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// Retain is the number of most recent records kept. Zero keeps every
	// record.
	Retain uint64 `yaml:"retain"`

	// CollectionInterval is how often expired records are deleted.
	CollectionInterval time.Duration `yaml:"collection_interval"`
}

type HistoryRedis struct {
	URL    string `yaml:"url"`
	Stream string `yaml:"stream"`
	MaxLen int64  `yaml:"max_len"`
}

type HistoryPostgres struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

type HistorySQLite struct {
	// Path defaults to <home>/history.db.
	Path string `yaml:"path"`
}

type Scheduler struct {
	// ProbeLimit is the number of probes a next run search may take.
	ProbeLimit int `yaml:"probe_limit"`

	// SundayFirst numbers weekdays from Sunday=0 instead of Monday=0.
	SundayFirst bool `yaml:"sunday_first"`

	// Location is the IANA time zone schedules are evaluated in. Empty means
	// UTC.
	Location string `yaml:"location"`
}

type Runner struct {
	// Dir is the working directory of job commands.
	Dir string `yaml:"dir"`
}

type Metrics struct {
	// Addr is the listen address of the metrics endpoint. Empty disables it.
	Addr string `yaml:"addr"`
}

// Default returns the default configuration rooted at home. An empty home
// resolves to ~/job_scheduler.
func Default(home string) *Config {
	return &Config{
		Home: home,
		Log: Log{
			Level:      "info",
			ToFile:     true,
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
		History: History{
			Backend:       BackendFile,
			AppendTimeout: 10 * time.Second,
			ETCD: HistoryETCD{
				Namespace:          "crond",
				DialTimeout:        5 * time.Second,
				CollectionInterval: 180 * time.Second,
			},
			Redis: HistoryRedis{
				Stream: "crond:history",
			},
			Postgres: HistoryPostgres{
				Table: "crond_history",
			},
		},
		Scheduler: Scheduler{
			ProbeLimit: scheduler.LoopLimit,
		},
	}
}

// Load returns the default configuration overlaid with the YAML file at path
// (if non-empty), the given .env files (missing ones are skipped) and CROND_*
// environment variables, in that order, then resolves derived paths.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default("")

	if len(path) > 0 {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err = cfg.Decode(bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
		}
	}

	for _, f := range envFiles {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load env file %q: %w", f, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Resolve(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Decode overlays the YAML document in r. Unknown keys are rejected.
func (c *Config) Decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overlays CROND_* variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = i
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	str("HOME", &c.Home)
	str("JOBS_FILE", &c.JobsFile)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FILE", &c.Log.File)
	boolean("LOG_TO_FILE", &c.Log.ToFile)

	var backend string
	str("HISTORY_BACKEND", &backend)
	if len(backend) > 0 {
		c.History.Backend = Backend(backend)
	}
	boolean("HISTORY_LOWERCASE", &c.History.Lowercase)
	duration("HISTORY_APPEND_TIMEOUT", &c.History.AppendTimeout)
	str("HISTORY_FILE", &c.History.File.Path)

	var endpoints string
	str("ETCD_ENDPOINTS", &endpoints)
	if len(endpoints) > 0 {
		c.History.ETCD.Endpoints = strings.Split(endpoints, ",")
	}
	str("ETCD_NAMESPACE", &c.History.ETCD.Namespace)
	str("ETCD_ID", &c.History.ETCD.ID)
	if v, ok := lookup(EnvPrefix + "ETCD_RETAIN"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sETCD_RETAIN: %w", EnvPrefix, err))
		} else {
			c.History.ETCD.Retain = n
		}
	}

	str("REDIS_URL", &c.History.Redis.URL)
	str("REDIS_STREAM", &c.History.Redis.Stream)
	str("POSTGRES_DSN", &c.History.Postgres.DSN)
	str("POSTGRES_TABLE", &c.History.Postgres.Table)
	str("SQLITE_PATH", &c.History.SQLite.Path)

	integer("PROBE_LIMIT", &c.Scheduler.ProbeLimit)
	boolean("SUNDAY_FIRST", &c.Scheduler.SundayFirst)
	str("LOCATION", &c.Scheduler.Location)

	str("RUNNER_DIR", &c.Runner.Dir)
	str("METRICS_ADDR", &c.Metrics.Addr)

	return errors.Join(errs...)
}

// Resolve fills in paths derived from Home and the daemon ID.
func (c *Config) Resolve() error {
	if len(c.Home) == 0 {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to resolve home directory: %w", err)
		}
		c.Home = filepath.Join(home, DefaultHomeDir)
	}

	if len(c.JobsFile) == 0 {
		c.JobsFile = filepath.Join(c.Home, "jobs")
	}
	if c.Log.ToFile && len(c.Log.File) == 0 {
		c.Log.File = filepath.Join(c.Home, "logs")
	}
	if !c.Log.ToFile {
		c.Log.File = ""
	}
	if len(c.History.File.Path) == 0 {
		c.History.File.Path = filepath.Join(c.Home, "history")
	}
	if len(c.History.SQLite.Path) == 0 {
		c.History.SQLite.Path = filepath.Join(c.Home, "history.db")
	}
	if len(c.History.ETCD.ID) == 0 {
		host, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("failed to resolve hostname: %w", err)
		}
		c.History.ETCD.ID = host
	}

	return nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		errs = append(errs, errors.New("log: max_size_mb and max_backups must not be negative"))
	}

	if c.History.AppendTimeout <= 0 {
		errs = append(errs, errors.New("history.append_timeout: must be positive"))
	}

	switch c.History.Backend {
	case BackendFile, BackendMemory, BackendSQLite:
	case BackendETCD:
		if len(c.History.ETCD.Endpoints) == 0 {
			errs = append(errs, errors.New("history.etcd.endpoints: required for the etcd backend"))
		}
		if c.History.ETCD.Retain > 0 && c.History.ETCD.CollectionInterval <= 0 {
			errs = append(errs, errors.New("history.etcd.collection_interval: must be positive when retain is set"))
		}
	case BackendRedis:
		if len(c.History.Redis.URL) == 0 {
			errs = append(errs, errors.New("history.redis.url: required for the redis backend"))
		}
	case BackendPostgres:
		if len(c.History.Postgres.DSN) == 0 {
			errs = append(errs, errors.New("history.postgres.dsn: required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("history.backend: unknown backend %q", c.History.Backend))
	}

	if c.Scheduler.ProbeLimit < 1 {
		errs = append(errs, fmt.Errorf("scheduler.probe_limit: must be at least 1, got %d", c.Scheduler.ProbeLimit))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("scheduler.location: %w", err))
	}

	return errors.Join(errs...)
}

// Location returns the time zone schedules are evaluated in.
func (c *Config) Location() (*time.Location, error) {
	if len(c.Scheduler.Location) == 0 {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Scheduler.Location)
}

// CalculatorOptions returns the scheduler options described by the
// configuration. The location must have been validated.
func (c *Config) CalculatorOptions() []scheduler.Option {
	opts := []scheduler.Option{scheduler.WithLoopLimit(c.Scheduler.ProbeLimit)}
	if c.Scheduler.SundayFirst {
		opts = append(opts, scheduler.WithSundayFirst())
	}
	if loc, err := c.Location(); err == nil {
		opts = append(opts, scheduler.WithLocation(loc))
	}
	return opts
}
