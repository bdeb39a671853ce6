package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/Centroplan-france/vcom-yuman-sync/core/database"
	"github.com/Centroplan-france/vcom-yuman-sync/core/logger"
	"github.com/Centroplan-france/vcom-yuman-sync/core/metrics"
	"github.com/Centroplan-france/vcom-yuman-sync/core/server"
	"github.com/Centroplan-france/vcom-yuman-sync/core/storage"
	"github.com/Centroplan-france/vcom-yuman-sync/pkg/vcom"
	"github.com/Centroplan-france/vcom-yuman-sync/pkg/yuman"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingCredential is wrapped by Validate for every unset API credential.
var ErrMissingCredential = errors.New("missing credential")

// Config is the full vysync configuration. Every section maps to one
// environment prefix: VCOM_*, YUMAN_*, DATABASE_* and so on.
type Config struct {
	Server   server.Config   `mapstructure:"server"`
	Storage  storage.Config  `mapstructure:"storage"`
	Log      logger.Config   `mapstructure:"log"`
	Database database.Config `mapstructure:"database"`
	Vcom     vcom.Config     `mapstructure:"vcom"`
	Yuman    yuman.Config    `mapstructure:"yuman"`
	Metrics  metrics.Config  `mapstructure:"metrics"`
}

// LoadConfig reads dir/.env when present, then the process environment, over
// the defaults declared in the section tags. The environment wins over the file.
func LoadConfig(dir string) (*Config, error) {
	// A missing file is the normal case in production
	_ = godotenv.Overload(filepath.Join(dir, ".env"))

	v := viper.New()
	registerKeys(v, reflect.TypeOf(Config{}), "")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the API credentials a sync cannot run without.
func (c *Config) Validate() error {
	var errs []error
	required := []struct{ env, value string }{
		{"VCOM_API_KEY", c.Vcom.APIKey},
		{"VCOM_USERNAME", c.Vcom.Username},
		{"VCOM_PASSWORD", c.Vcom.Password},
		{"YUMAN_TOKEN", c.Yuman.Token},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingCredential, r.env))
		}
	}
	return errors.Join(errs...)
}

// registerKeys declares one viper key per leaf field, named after the
// mapstructure path, so AutomaticEnv can resolve it. The value is the
// field's default tag, possibly empty.
func registerKeys(v *viper.Viper, t reflect.Type, prefix string) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Tag.Get("mapstructure")
		if name == "" {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		if f.Type.Kind() == reflect.Struct {
			registerKeys(v, f.Type, name)
			continue
		}
		v.SetDefault(name, f.Tag.Get("default"))
	}
}
