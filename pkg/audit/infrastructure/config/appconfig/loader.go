package appconfig

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/deployaudit/tools/pkg/audit/application/model"
)

const (
	defaultUsernameEnv    = "UDEPLOY_USER"
	defaultPasswordEnv    = "UDEPLOY_PASSWORD"
	defaultRequestTimeout = 30 * time.Second
	defaultMaxRetries     = 2
	defaultConcurrency    = 4
	defaultHTMLReport     = "report.html"
	defaultSummaryReport  = "report.jsonl"
)

// validate is shared across Load calls; building a validator per call is
// needlessly expensive.
var validate = validator.New()

type UDeploy struct {
	BaseURL            string `yaml:"baseUrl" validate:"required,url"`
	UsernameEnv        string `yaml:"usernameEnv" validate:"required"`
	PasswordEnv        string `yaml:"passwordEnv" validate:"required"`
	RequestTimeout     string `yaml:"requestTimeout"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`

	// MaxRetries left unset means the default; an explicit 0 disables
	// retries entirely.
	MaxRetries *int `yaml:"maxRetries" validate:"omitempty,min=0,max=10"`
}

type Report struct {
	HTML    string `yaml:"html" validate:"required"`
	Summary string `yaml:"summary" validate:"required"`
}

type Config struct {
	UDeploy     UDeploy `yaml:"udeploy"`
	WorkRoot    string  `yaml:"workRoot"`
	Concurrency int     `yaml:"concurrency" validate:"min=1,max=32"`
	Report      Report  `yaml:"report"`
}

// Load reads and validates the tool configuration. Unset optional fields get
// their defaults before validation, so a minimal file only names the
// deployment tool endpoint.
func Load(filePath string) (model.Config, error) {
	configBody, err := os.ReadFile(filePath)
	if err != nil {
		return model.Config{}, errors.Wrapf(err, "failed to read config file: %v", filePath)
	}

	var config Config
	err = yaml.Unmarshal(configBody, &config)
	if err != nil {
		return model.Config{}, errors.Wrap(err, "failed to unmarshal config")
	}
	applyDefaults(&config)
	err = validate.Struct(config)
	if err != nil {
		return model.Config{}, errors.Wrap(err, "invalid config")
	}

	return mapToAppConfig(config)
}

func applyDefaults(config *Config) {
	if config.UDeploy.UsernameEnv == "" {
		config.UDeploy.UsernameEnv = defaultUsernameEnv
	}
	if config.UDeploy.PasswordEnv == "" {
		config.UDeploy.PasswordEnv = defaultPasswordEnv
	}
	if config.WorkRoot == "" {
		config.WorkRoot = os.TempDir()
	}
	if config.Concurrency == 0 {
		config.Concurrency = defaultConcurrency
	}
	if config.Report.HTML == "" {
		config.Report.HTML = defaultHTMLReport
	}
	if config.Report.Summary == "" {
		config.Report.Summary = defaultSummaryReport
	}
}

func mapToAppConfig(config Config) (model.Config, error) {
	requestTimeout := defaultRequestTimeout
	if config.UDeploy.RequestTimeout != "" {
		parsed, err := time.ParseDuration(config.UDeploy.RequestTimeout)
		if err != nil {
			return model.Config{}, errors.Wrapf(err, "invalid requestTimeout %q", config.UDeploy.RequestTimeout)
		}
		if parsed <= 0 {
			return model.Config{}, errors.Errorf("requestTimeout %q must be positive", config.UDeploy.RequestTimeout)
		}
		requestTimeout = parsed
	}

	maxRetries := defaultMaxRetries
	if config.UDeploy.MaxRetries != nil {
		maxRetries = *config.UDeploy.MaxRetries
	}

	return model.Config{
		UDeploy: model.UDeployConfig{
			BaseURL:            config.UDeploy.BaseURL,
			UsernameEnv:        config.UDeploy.UsernameEnv,
			PasswordEnv:        config.UDeploy.PasswordEnv,
			RequestTimeout:     requestTimeout,
			MaxRetries:         maxRetries,
			InsecureSkipVerify: config.UDeploy.InsecureSkipVerify,
		},
		WorkRoot:    config.WorkRoot,
		Concurrency: config.Concurrency,
		Report: model.ReportConfig{
			HTML:    config.Report.HTML,
			Summary: config.Report.Summary,
		},
	}, nil
}
