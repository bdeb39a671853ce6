package vcom

// Config holds configuration for the VCOM API client.
type Config struct {
	// BaseURL is the meteocontrol API root.
	BaseURL string `mapstructure:"base_url" default:"https://api.meteocontrol.de/v2"`
	// APIKey is sent as X-API-KEY.
	APIKey string `mapstructure:"api_key" default:""`
	// Username and Password are sent as basic auth.
	Username string `mapstructure:"username" default:""`
	Password string `mapstructure:"password" default:""`
	// RequestsPerMinute is the account quota.
	RequestsPerMinute int `mapstructure:"requests_per_minute" default:"90"`
	// MinDelayMS is the minimum spacing between two requests.
	MinDelayMS int `mapstructure:"min_delay_ms" default:"800"`
	// MaxAttempts bounds retries on 429, 5xx and network errors.
	MaxAttempts int `mapstructure:"max_attempts" default:"3"`
	// TimeoutSeconds is the per-request timeout.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
