package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath string `long:"db-path" env:"DB_PATH" default:"data/news.db" description:"SQLite database file"`

	// Pipeline configuration
	FeedsConfig      string `long:"feeds-config" env:"FEEDS_CONFIG" default:"feeds.yml" description:"Feed registry YAML file"`
	ClassifierTables string `long:"classifier-tables" env:"CLASSIFIER_TABLES" description:"Keyword tables YAML file (built-in tables when empty)"`
	Lexicon          string `long:"lexicon" env:"SENTIMENT_LEXICON" description:"Sentiment lexicon YAML file (built-in lexicon when empty)"`
	UserAgent        string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (compatible; NewsSieve/1.0)" description:"User agent string for HTTP requests"`
	FetchTimeout     int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"20" description:"Per-request timeout in seconds"`
	FetchDelay       int    `long:"fetch-delay" env:"FETCH_DELAY" default:"1000" description:"Minimum delay between outbound requests in milliseconds"`
	WorkerCount      int    `long:"workers" env:"WORKER_COUNT" default:"1" description:"Feeds fetched in parallel (1 = sequential)"`

	// Server configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://news.example.com)"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"3600" description:"Ingestion interval in seconds for serve (0 disables)"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for displayed timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Command is a subcommand registered with Load. Data must implement
// flags.Commander; its Execute runs after the global configuration is set.
type Command struct {
	Name  string
	Short string
	Long  string
	Data  any
}

var globalCfg *Cfg

// Load parses args, publishes the configuration for Get and runs the selected
// command, if any. It returns nil without error when help was requested.
func Load(args []string, commands ...Command) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	for _, c := range commands {
		if _, err := parser.AddCommand(c.Name, c.Short, c.Long, c.Data); err != nil {
			return nil, fmt.Errorf("failed to register command %s: %w", c.Name, err)
		}
	}

	var cfg *Cfg
	parser.CommandHandler = func(command flags.Commander, args []string) error {
		cfg = build(raw)
		globalCfg = cfg

		if command == nil {
			return nil
		}
		return command.Execute(args)
	}

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		if cfg == nil {
			return nil, fmt.Errorf("failed to parse configuration: %w", err)
		}
		return cfg, err
	}

	if cfg == nil {
		cfg = build(raw)
		globalCfg = cfg
	}

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func build(raw rawCfg) *Cfg {
	cfg := &Cfg{
		DBPath:            raw.DBPath,
		FeedsConfig:       raw.FeedsConfig,
		ClassifierTables:  raw.ClassifierTables,
		Lexicon:           raw.Lexicon,
		UserAgent:         raw.UserAgent,
		FetchTimeout:      raw.FetchTimeout,
		FetchDelay:        raw.FetchDelay,
		WorkerCount:       max(raw.WorkerCount, 1),
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		SchedulerInterval: max(raw.SchedulerInterval, 0),
		APIAccessKey:      raw.APIAccessKey,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return err
		}
		time.Local = loc
	}
	return nil
}
