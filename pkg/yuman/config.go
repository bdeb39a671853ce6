package yuman

// Config holds configuration for the Yuman API client.
type Config struct {
	// BaseURL is the Yuman API root.
	BaseURL string `mapstructure:"base_url" default:"https://api.yuman.io/v1"`
	// Token is the Bearer API token.
	Token string `mapstructure:"token" default:""`
	// PerPage is the page size of list calls, capped at 200.
	PerPage int `mapstructure:"per_page" default:"100"`
	// MaxRetry bounds retries on 429 and network errors.
	MaxRetry int `mapstructure:"max_retry" default:"5"`
	// BackoffMS is the initial retry delay, doubled on each attempt.
	BackoffMS int `mapstructure:"backoff_ms" default:"2000"`
	// RequestsPerMinute throttles calls client-side; 0 disables throttling.
	RequestsPerMinute int `mapstructure:"requests_per_minute" default:"60"`
	// StringCategoryID is the material category used for PV strings; 0 when strings are not tracked as materials.
	StringCategoryID int64 `mapstructure:"string_category_id" default:"0"`
	// SiteKeyBlueprint is the custom field blueprint of "System Key (Vcom ID)", set on
	// created sites; 0 leaves it out.
	SiteKeyBlueprint int64 `mapstructure:"site_key_blueprint" default:"0"`
	// InverterIDBlueprint is the custom field blueprint of "Inverter ID (Vcom)", set on
	// created inverters; 0 leaves it out.
	InverterIDBlueprint int64 `mapstructure:"inverter_id_blueprint" default:"0"`
	// TimeoutSeconds is the per-request timeout.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
