package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. ALGOBENCH_BENCH_THREADS.
const EnvPrefix = "ALGOBENCH"

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// BenchConfig configures a benchmark run.
type BenchConfig struct {
	// Threads is the worker count. Zero picks one per device.
	Threads int           `mapstructure:"threads" yaml:"threads"`
	Slice   time.Duration `mapstructure:"slice" yaml:"slice"`
	Device  string        `mapstructure:"device" yaml:"device"`

	// Algorithms overrides the built-in catalog order when non-empty.
	Algorithms []string `mapstructure:"algorithms" yaml:"algorithms"`
	Skip       []string `mapstructure:"skip" yaml:"skip"`
	Start      string   `mapstructure:"start" yaml:"start"`

	Output   string `mapstructure:"output" yaml:"output"`
	Template string `mapstructure:"template" yaml:"template"`

	// Window is the number of rate samples averaged per worker.
	Window int `mapstructure:"window" yaml:"window"`
}

// SessionConfig tunes the switch protocol.
type SessionConfig struct {
	LeakThreshold     string        `mapstructure:"leak_threshold" yaml:"leak_threshold"`
	SettleDelay       time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	SettleRetries     int           `mapstructure:"settle_retries" yaml:"settle_retries"`
	SingleDeviceReset bool          `mapstructure:"single_device_reset" yaml:"single_device_reset"`
	BarrierTimeout    time.Duration `mapstructure:"barrier_timeout" yaml:"barrier_timeout"`
}

// TunerConfig controls throughput sizing.
type TunerConfig struct {
	MemoryFraction float64 `mapstructure:"memory_fraction" yaml:"memory_fraction"`
	MinThroughput  uint32  `mapstructure:"min_throughput" yaml:"min_throughput"`
	MaxThroughput  uint32  `mapstructure:"max_throughput" yaml:"max_throughput"`
}

// SimConfig configures the simulated device backend.
type SimConfig struct {
	Devices     int            `mapstructure:"devices" yaml:"devices"`
	Memory      string         `mapstructure:"memory" yaml:"memory"`
	Reserved    string         `mapstructure:"reserved" yaml:"reserved"`
	SettleReads int            `mapstructure:"settle_reads" yaml:"settle_reads"`
	Leaks       map[string]int `mapstructure:"leaks" yaml:"leaks,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables it.
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size" yaml:"max_size"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level        string            `mapstructure:"level" yaml:"level"`
	Path         string            `mapstructure:"path" yaml:"path"`
	ConsoleLevel string            `mapstructure:"console_level" yaml:"console_level"`
	Rotation     RotationConfig    `mapstructure:"rotation" yaml:"rotation"`
	Components   map[string]string `mapstructure:"components" yaml:"components,omitempty"`
}

// Config represents the application configuration.
type Config struct {
	Bench   BenchConfig   `mapstructure:"bench" yaml:"bench"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	Tuner   TunerConfig   `mapstructure:"tuner" yaml:"tuner"`
	Sim     SimConfig     `mapstructure:"sim" yaml:"sim"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("bench.threads", 0)
	v.SetDefault("bench.slice", DefaultSlice)
	v.SetDefault("bench.device", DefaultDevice)
	v.SetDefault("bench.algorithms", []string{})
	v.SetDefault("bench.skip", []string{})
	v.SetDefault("bench.start", "")
	v.SetDefault("bench.output", DefaultOutput)
	v.SetDefault("bench.template", "")
	v.SetDefault("bench.window", DefaultWindow)

	v.SetDefault("session.leak_threshold", DefaultLeakThreshold)
	v.SetDefault("session.settle_delay", DefaultSettleDelay)
	v.SetDefault("session.settle_retries", DefaultSettleRetries)
	v.SetDefault("session.single_device_reset", true)
	v.SetDefault("session.barrier_timeout", time.Duration(0))

	v.SetDefault("tuner.memory_fraction", DefaultMemoryFraction)
	v.SetDefault("tuner.min_throughput", DefaultMinThroughput)
	v.SetDefault("tuner.max_throughput", DefaultMaxThroughput)

	v.SetDefault("sim.devices", DefaultSimDevices)
	v.SetDefault("sim.memory", DefaultSimMemory)
	v.SetDefault("sim.reserved", DefaultSimReserved)
	v.SetDefault("sim.settle_reads", 0)
	v.SetDefault("sim.leaks", map[string]int{})

	v.SetDefault("metrics.addr", "")

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.path", "") // empty means DefaultLogPath
	v.SetDefault("logging.console_level", DefaultConsoleLevel)
	v.SetDefault("logging.rotation.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.rotation.max_age", DefaultLogMaxAge)
	v.SetDefault("logging.rotation.max_backups", DefaultLogMaxBackups)
	v.SetDefault("logging.components", map[string]string{
		"session": "info",
		"runner":  "info",
	})
}

// BindEnv enables ALGOBENCH_ environment overrides on v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// Load loads configuration from file and environment variables. An empty
// path searches ConfigDir() for config.yaml; a missing file is not an
// error.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges that decoding cannot.
func (c *Config) Validate() error {
	switch c.Bench.Device {
	case DeviceHost, DeviceSim:
	default:
		return fmt.Errorf("%w: bench.device %q (want %s or %s)", ErrInvalid, c.Bench.Device, DeviceHost, DeviceSim)
	}
	if c.Bench.Threads < 0 {
		return fmt.Errorf("%w: bench.threads %d", ErrInvalid, c.Bench.Threads)
	}
	if c.Bench.Slice <= 0 {
		return fmt.Errorf("%w: bench.slice %s", ErrInvalid, c.Bench.Slice)
	}
	if c.Session.SettleRetries < 0 {
		return fmt.Errorf("%w: session.settle_retries %d", ErrInvalid, c.Session.SettleRetries)
	}
	if c.Session.SettleDelay < 0 || c.Session.BarrierTimeout < 0 {
		return fmt.Errorf("%w: negative session duration", ErrInvalid)
	}
	if f := c.Tuner.MemoryFraction; f < 0 || f > 1 {
		return fmt.Errorf("%w: tuner.memory_fraction %g", ErrInvalid, f)
	}
	if c.Tuner.MaxThroughput != 0 && c.Tuner.MinThroughput > c.Tuner.MaxThroughput {
		return fmt.Errorf("%w: tuner.min_throughput above max_throughput", ErrInvalid)
	}
	if c.Sim.Devices < 0 {
		return fmt.Errorf("%w: sim.devices %d", ErrInvalid, c.Sim.Devices)
	}
	return nil
}

// ConfigDir returns the configuration directory, honoring XDG_CONFIG_HOME.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "algobench"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "algobench"), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// StateDir returns $XDG_STATE_HOME/algobench/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "algobench")
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}

// WriteDefault writes the default config file to path unless one exists.
// It reports whether a file was written.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	content := fmt.Sprintf(defaultConfigTemplate,
		DefaultSlice, DefaultDevice, DefaultOutput, DefaultWindow,
		DefaultLeakThreshold, DefaultSettleDelay, DefaultSettleRetries,
		DefaultMemoryFraction, DefaultMinThroughput, DefaultMaxThroughput,
		DefaultSimDevices, DefaultSimMemory, DefaultSimReserved,
		DefaultLogLevel, DefaultConsoleLevel, DefaultLogMaxSize, DefaultLogMaxAge, DefaultLogMaxBackups)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("failed to write default config: %w", err)
	}
	return true, nil
}

const defaultConfigTemplate = `# algobench configuration

bench:
  # Workers, one per device. 0 uses every device the backend reports.
  threads: 0
  # How long each algorithm is hashed before the pool switches.
  slice: %s
  # Device backend: host or sim
  device: %s
  # Algorithm order; empty uses the built-in catalog.
  algorithms: []
  skip: []
  start: ""
  # Output format: pretty, plain, log, json, jsonl, yaml, csv, tsv, markdown, template
  output: %s
  template: ""
  window: %d

session:
  # Free-memory drop across a round above which a leak is reported.
  leak_threshold: %s
  settle_delay: %s
  settle_retries: %d
  # Reset a lone device after every leak-free switch.
  single_device_reset: true
  # 0 waits forever at the switch barriers.
  barrier_timeout: 0s

tuner:
  memory_fraction: %g
  min_throughput: %d
  max_throughput: %d

sim:
  devices: %d
  memory: %s
  reserved: %s
  settle_reads: 0
  # MiB left behind when an algorithm is released, e.g. scrypt: 2
  leaks: {}

metrics:
  # Serve Prometheus metrics here during a run, e.g. ":9464"
  addr: ""

logging:
  # Log level: debug, info, warn, error
  level: %s
  # Log file path (empty means $XDG_STATE_HOME/algobench/algobench.log)
  path: ""
  # Console (stderr) level; empty disables console output.
  console_level: %s
  rotation:
    max_size: %s
    max_age: %d       # days
    max_backups: %d
  components:
    session: info
    runner: info
`
