package cfg

type Cfg struct {
	// Storage
	DBPath string

	// Pipeline configuration
	FeedsConfig      string
	ClassifierTables string
	Lexicon          string
	UserAgent        string
	FetchTimeout     int // seconds
	FetchDelay       int // milliseconds between outbound requests
	WorkerCount      int

	// Server configuration
	Port              string
	BaseUrl           string
	SchedulerInterval int // seconds, 0 disables periodic ingestion
	APIAccessKey      string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
