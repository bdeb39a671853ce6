package metrics

// Config holds configuration for run metrics.
type Config struct {
	// PushgatewayURL is the Prometheus pushgateway batch runs push to. Empty disables the push.
	PushgatewayURL string `mapstructure:"pushgateway_url" default:""`
	// Job is the pushgateway job label.
	Job string `mapstructure:"job" default:"vysync"`
}
