package tasklock

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultChallengeLifetime = 15 * time.Minute
	DefaultTruthLength       = 2048
)

type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	unmarshal(&s)
	parsed, err := time.ParseDuration(s)
	*d = Duration(parsed)
	return err
}

type LogLevel struct {
	l *logrus.Level
}

func (l *LogLevel) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	unmarshal(&s)
	lev, err := logrus.ParseLevel(s)
	l.l = &lev
	return err
}

func (l *LogLevel) LogrusLevel() logrus.Level {
	if l.l == nil {
		return logrus.InfoLevel
	}
	return *l.l
}

type Configuration struct {
	Database *struct {
		Dialect    string
		Connection string
	}

	Web []struct {
		Bind string
		SSL  *struct {
			Certificate string `yaml:"cert"`
			Key         string `yaml:"key"`
		}
		Proxied bool
	}

	Logging struct {
		Destination struct {
			Type string
			Path string
		}
		Level LogLevel
	}

	Application struct {
		ChallengeLifetime Duration `yaml:"challenge_lifetime"`
		TruthLength       int      `yaml:"truth_length"`
		CORSOrigins       []string `yaml:"cors_origins"`
		Throttle          struct {
			MaxFailures int      `yaml:"max_failures"`
			Window      Duration `yaml:"window"`
		}
	}
}

// ChallengeLifetime returns the configured challenge lifetime, defaulted.
func (c *Configuration) ChallengeLifetime() time.Duration {
	if c.Application.ChallengeLifetime == 0 {
		return DefaultChallengeLifetime
	}
	return time.Duration(c.Application.ChallengeLifetime)
}

// TruthLength returns the configured truth byte length, defaulted.
func (c *Configuration) TruthLength() int {
	if c.Application.TruthLength == 0 {
		return DefaultTruthLength
	}
	return c.Application.TruthLength
}

type ConfigurationService interface {
	LoadConfiguration() (*Configuration, error)
}
