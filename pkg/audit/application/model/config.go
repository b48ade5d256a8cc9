package model

import "time"

// Config is the validated tool configuration.
type Config struct {
	UDeploy     UDeployConfig
	WorkRoot    string
	Concurrency int
	Report      ReportConfig
}

// UDeployConfig describes how to reach the deployment tool. Credentials are
// named indirectly: the configuration carries environment variable names, the
// values are read at startup and never persisted.
type UDeployConfig struct {
	BaseURL            string
	UsernameEnv        string
	PasswordEnv        string
	RequestTimeout     time.Duration
	MaxRetries         int
	InsecureSkipVerify bool
}

// ReportConfig holds the default output artifact locations.
type ReportConfig struct {
	HTML    string
	Summary string
}
