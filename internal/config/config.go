package config

import (
	"strconv"
	"time"

	"github.com/paularlott/cli"
)

type Config struct {
	ServerURL      string
	Username       string
	Password       string
	CAFile         string
	SkipTLSVerify  bool
	MaxConnections int
	RetryAttempts  int
	RequestTimeout time.Duration
	LogLevel       string
	LogFormat      string
}

var (
	serverURL      string
	username       string
	password       string
	caFile         string
	skipTLSVerify  string
	maxConnections string
	retryAttempts  string
	requestTimeout string
	logLevel       string
	logFormat      string
)

func GetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "server",
			Usage:    "MDM server URL including protocol and port",
			EnvVars:  []string{"MDMKIT_SERVER"},
			AssignTo: &serverURL,
		},
		&cli.StringFlag{
			Name:     "username",
			Usage:    "API username",
			EnvVars:  []string{"MDMKIT_USERNAME"},
			AssignTo: &username,
		},
		&cli.StringFlag{
			Name:     "password",
			Usage:    "API password",
			EnvVars:  []string{"MDMKIT_PASSWORD"},
			AssignTo: &password,
		},
		&cli.StringFlag{
			Name:     "ca-file",
			Usage:    "PEM CA bundle for server certificate verification",
			EnvVars:  []string{"MDMKIT_CA_FILE"},
			AssignTo: &caFile,
		},
		&cli.StringFlag{
			Name:         "insecure",
			Usage:        "Skip TLS certificate verification (true/false)",
			EnvVars:      []string{"MDMKIT_INSECURE"},
			DefaultValue: "false",
			AssignTo:     &skipTLSVerify,
		},
		&cli.StringFlag{
			Name:         "max-connections",
			Usage:        "Maximum concurrent connections for bulk fetches",
			EnvVars:      []string{"MDMKIT_MAX_CONNECTIONS"},
			DefaultValue: "25",
			AssignTo:     &maxConnections,
		},
		&cli.StringFlag{
			Name:         "retry-attempts",
			Usage:        "Transport-level retry attempts per request",
			EnvVars:      []string{"MDMKIT_RETRY_ATTEMPTS"},
			DefaultValue: "5",
			AssignTo:     &retryAttempts,
		},
		&cli.StringFlag{
			Name:         "timeout",
			Usage:        "Request timeout in seconds",
			EnvVars:      []string{"MDMKIT_TIMEOUT"},
			DefaultValue: "30",
			AssignTo:     &requestTimeout,
		},
		&cli.StringFlag{
			Name:         "log-level",
			Usage:        "Log level (debug, info, warn, error)",
			EnvVars:      []string{"MDMKIT_LOG_LEVEL"},
			DefaultValue: "info",
			AssignTo:     &logLevel,
		},
		&cli.StringFlag{
			Name:         "log-format",
			Usage:        "Log format (console, json)",
			EnvVars:      []string{"MDMKIT_LOG_FORMAT"},
			DefaultValue: "console",
			AssignTo:     &logFormat,
		},
	}
}

// Load snapshots the parsed flag values. Numeric and boolean flags that
// fail to parse fall back to their defaults; the client applies its own
// floor for zero values.
func Load() *Config {
	insecure, _ := strconv.ParseBool(skipTLSVerify)
	timeoutSecs := parseIntOr(requestTimeout, 30)

	return &Config{
		ServerURL:      serverURL,
		Username:       username,
		Password:       password,
		CAFile:         caFile,
		SkipTLSVerify:  insecure,
		MaxConnections: parseIntOr(maxConnections, 25),
		RetryAttempts:  parseIntOr(retryAttempts, 5),
		RequestTimeout: time.Duration(timeoutSecs) * time.Second,
		LogLevel:       logLevel,
		LogFormat:      logFormat,
	}
}

func parseIntOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
