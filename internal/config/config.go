package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Version  string `envconfig:"VERSION" default:"dev"`

	APIBaseURL string        `envconfig:"API_BASE_URL" required:"true"`
	APIToken   string        `envconfig:"API_TOKEN" default:""`
	APITimeout time.Duration `envconfig:"API_TIMEOUT" default:"10s"`

	LayoutsFile     string        `envconfig:"LAYOUTS_FILE" default:""`
	SignInURL       string        `envconfig:"SIGN_IN_URL" default:"/sign-in"`
	UnauthorizedURL string        `envconfig:"UNAUTHORIZED_URL" default:"/unauthorized"`
	GateLoadingWait time.Duration `envconfig:"GATE_LOADING_WAIT" default:"2s"`

	// NotificationRefreshInterval of zero disables background refresh.
	NotificationRefreshInterval time.Duration `envconfig:"NOTIFICATION_REFRESH_INTERVAL" default:"0s"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
