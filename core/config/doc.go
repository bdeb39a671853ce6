// Package config provides configuration management for vysync.
//
// It loads an optional .env file with godotenv, then reads every setting from
// environment variables through Viper. Defaults come from the `default` struct
// tags of each section and are registered by reflection.
//
// # Configuration Structure
//
// The Config struct is divided into subsections:
//   - Server: HTTP API port, API key and shutdown timeout
//   - Database: mapping store driver and connection details
//   - Storage: S3/MinIO report archive
//   - Log: logging level and format
//   - Vcom: VCOM API credentials and rate limits
//   - Yuman: Yuman API token, paging and retries
//   - Metrics: pushgateway address
//
// Keys map to environment variables by upper-casing and replacing dots with
// underscores, so vcom.api_key is read from VCOM_API_KEY.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Vcom.RequestsPerMinute)
package config
