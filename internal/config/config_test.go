package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfiguration(t *testing.T) {
	path := writeConfigFile(t, "tasklock.yml", `
database:
  dialect: postgres
  connection: postgresql://tasklock@localhost/tasklock
web:
  - bind: "0.0.0.0:8080"
  - bind: "0.0.0.0:8443"
    proxied: true
logging:
  level: debug
application:
  challenge_lifetime: 10m
  truth_length: 1024
  cors_origins: ["https://app.selwood.net"]
  throttle:
    max_failures: 3
    window: 30s
`)

	c, err := NewFileConfigurationService([]string{path}).LoadConfiguration()
	if err != nil {
		t.Fatal(err)
	}

	if c.Database == nil || c.Database.Dialect != "postgres" {
		t.Errorf("unexpected database config %+v", c.Database)
	}
	if len(c.Web) != 2 || c.Web[0].Bind != "0.0.0.0:8080" || !c.Web[1].Proxied {
		t.Errorf("unexpected web config %+v", c.Web)
	}
	if c.Logging.Level.LogrusLevel().String() != "debug" {
		t.Errorf("unexpected log level %v", c.Logging.Level.LogrusLevel())
	}
	if c.ChallengeLifetime() != 10*time.Minute {
		t.Errorf("unexpected challenge lifetime %v", c.ChallengeLifetime())
	}
	if c.TruthLength() != 1024 {
		t.Errorf("unexpected truth length %d", c.TruthLength())
	}
	if c.Application.Throttle.MaxFailures != 3 || time.Duration(c.Application.Throttle.Window) != 30*time.Second {
		t.Errorf("unexpected throttle config %+v", c.Application.Throttle)
	}
}

func TestDefaults(t *testing.T) {
	path := writeConfigFile(t, "minimal.yml", `
database:
  dialect: postgres
  connection: postgresql://tasklock@localhost/tasklock
`)

	c, err := NewFileConfigurationService([]string{path}).LoadConfiguration()
	if err != nil {
		t.Fatal(err)
	}

	if c.ChallengeLifetime() != 15*time.Minute {
		t.Errorf("unexpected default lifetime %v", c.ChallengeLifetime())
	}
	if c.TruthLength() != 2048 {
		t.Errorf("unexpected default truth length %d", c.TruthLength())
	}
	if c.Logging.Level.LogrusLevel().String() != "info" {
		t.Errorf("unexpected default log level %v", c.Logging.Level.LogrusLevel())
	}
}

func TestLayeredFiles(t *testing.T) {
	base := writeConfigFile(t, "base.yml", `
application:
  challenge_lifetime: 10m
`)
	override := writeConfigFile(t, "override.yml", `
application:
  challenge_lifetime: 20m
`)

	c, err := NewFileConfigurationService([]string{base, override}).LoadConfiguration()
	if err != nil {
		t.Fatal(err)
	}

	if c.ChallengeLifetime() != 20*time.Minute {
		t.Errorf("later file should win; got %v", c.ChallengeLifetime())
	}
}

func TestEnvTemplating(t *testing.T) {
	t.Setenv("TASKLOCK_TEST_DSN", "postgresql://fromenv@localhost/t")

	path := writeConfigFile(t, "env.yml", `
database:
  dialect: postgres
  connection: "{{env "TASKLOCK_TEST_DSN"}}"
`)

	c, err := NewFileConfigurationService([]string{path}).LoadConfiguration()
	if err != nil {
		t.Fatal(err)
	}

	if c.Database == nil || c.Database.Connection != "postgresql://fromenv@localhost/t" {
		t.Errorf("env templating failed: %+v", c.Database)
	}
}
