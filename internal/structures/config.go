package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type Persistence struct {
	FilePath string `yaml:"filePath" validate:"required|unixPath"`
	Compress bool   `yaml:"compress"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LightningConfig struct {
	RPCFile string        `yaml:"rpcFile" validate:"required|unixPath"`
	Timeout time.Duration `yaml:"timeout" validate:"required|min:1"`
}

type AvailabilityConfig struct {
	Interval time.Duration `yaml:"interval" validate:"required|min:1"`
	Window   time.Duration `yaml:"window" validate:"required|min:1"`
	// MaxGap caps the time credited between two samples of the same peer.
	// Zero means twice the sampling interval.
	MaxGap time.Duration `yaml:"maxGap"`
}

type AliasConfig struct {
	RefreshInterval  time.Duration `yaml:"refreshInterval" validate:"required|min:1"`
	FastInterval     time.Duration `yaml:"fastInterval" validate:"required|min:1"`
	FastMaxInterval  time.Duration `yaml:"fastMaxInterval" validate:"required|min:1"`
	MissingThreshold float64       `yaml:"missingThreshold"`
	UTF8             bool          `yaml:"utf8"`
}

type SummaryConfig struct {
	Columns       []string `yaml:"columns"`
	SortBy        string   `yaml:"sortBy"`
	ExcludeStates []string `yaml:"excludeStates"`
}

// LedgerConfig is shared by forwards, pays and invoices. Filter thresholds
// of -1 are disabled; FilterFeeMsat and Alias only apply to forwards.
type LedgerConfig struct {
	Hours            int      `yaml:"hours"`
	Limit            int      `yaml:"limit"`
	Columns          []string `yaml:"columns"`
	SortBy           string   `yaml:"sortBy"`
	FilterAmountMsat int64    `yaml:"filterAmountMsat"`
	FilterFeeMsat    int64    `yaml:"filterFeeMsat"`
	Alias            bool     `yaml:"alias"`
}

type Config struct {
	AppName      string
	Debug        bool
	Path         string
	WebServer    Server             `yaml:"webServer"`
	Persistence  Persistence        `yaml:"persistence"`
	Logger       LoggerConfig       `yaml:"logger"`
	Cache        CacheConfig        `yaml:"cache"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Lightning    LightningConfig    `yaml:"lightning"`
	Availability AvailabilityConfig `yaml:"availability"`
	Alias        AliasConfig        `yaml:"alias"`
	Summary      SummaryConfig      `yaml:"summary"`
	Forwards     LedgerConfig       `yaml:"forwards"`
	Pays         LedgerConfig       `yaml:"pays"`
	Invoices     LedgerConfig       `yaml:"invoices"`
}

type CliFlags struct {
	ConfigPath string
	DebugMode  bool
}
