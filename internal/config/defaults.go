package config

const (
	defaultDataDir                = "~/.local/share/reposift"
	defaultLogDir                 = "~/.local/share/reposift/logs"
	defaultOwnedFile              = "repos_list.json"
	defaultLanguageRejectedFile   = "rejected_repos.json"
	defaultBenchmarkBlacklistFile = "benchmark_blacklist.json"
	defaultGreenListFile          = "filtered_repos.json"
	defaultJournalFile            = "runs.db"
	defaultSearchQuery            = "language:Python stars:>500 pushed:>2024-11-01"
	defaultPerPage                = 100
	defaultStartPage              = 1
	defaultEndPage                = 10
	defaultRequestsPerMinute      = 30
	defaultGitHubBaseURL          = "https://api.github.com/"
	defaultTargetLanguage         = "Python"
	defaultLanguageThreshold      = 75.0
	defaultMaxRetries             = 5
	defaultBackoffFactor          = 1.0
	defaultMaxBackoffSeconds      = 120
	defaultMinDelaySeconds        = 5
	defaultMaxDelaySeconds        = 15
	defaultMaxConsecutive         = 10
	defaultLongPauseSeconds       = 60
	defaultRequestTimeoutSeconds  = 30
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

var defaultRetryStatuses = []int{429, 500, 502, 503, 504}

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:                defaultDataDir,
			LogDir:                 defaultLogDir,
			OwnedFile:              defaultOwnedFile,
			LanguageRejectedFile:   defaultLanguageRejectedFile,
			BenchmarkBlacklistFile: defaultBenchmarkBlacklistFile,
			GreenListFile:          defaultGreenListFile,
			JournalPath:            defaultJournalFile,
		},
		Search: Search{
			Query:             defaultSearchQuery,
			PerPage:           defaultPerPage,
			StartPage:         defaultStartPage,
			EndPage:           defaultEndPage,
			RequestsPerMinute: defaultRequestsPerMinute,
		},
		GitHub: GitHub{
			BaseURL: defaultGitHubBaseURL,
		},
		Languages: Languages{
			Enabled:   true,
			Target:    defaultTargetLanguage,
			Threshold: defaultLanguageThreshold,
		},
		Fetcher: Fetcher{
			MaxRetries:             defaultMaxRetries,
			BackoffFactor:          defaultBackoffFactor,
			MaxBackoffSeconds:      defaultMaxBackoffSeconds,
			RetryStatuses:          append([]int(nil), defaultRetryStatuses...),
			MinDelaySeconds:        defaultMinDelaySeconds,
			MaxDelaySeconds:        defaultMaxDelaySeconds,
			MaxConsecutiveRequests: defaultMaxConsecutive,
			LongPauseSeconds:       defaultLongPauseSeconds,
			RequestTimeoutSeconds:  defaultRequestTimeoutSeconds,
			UserAgents:             append([]string(nil), defaultUserAgents...),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
