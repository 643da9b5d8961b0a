package main

import (
	"crypto/tls"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"selwood.net/tasklock/authz"
	"selwood.net/tasklock/challenge"
	tlhttp "selwood.net/tasklock/http"
	"selwood.net/tasklock/internal/config"
	"selwood.net/tasklock/postgres"
)

type options struct {
	ConfigFiles []string `long:"config" short:"c" description:"A configuration file (.yml) to read; can be specified multiple times."`
}

func main() {
	logger := logrus.New()

	var opts options
	_, err := flags.Parse(&opts)
	if flagErr, ok := err.(*flags.Error); flagErr != nil && ok {
		return
	}

	if len(opts.ConfigFiles) == 0 {
		opts.ConfigFiles = []string{"tasklock.yml"}
	}

	conf, err := config.NewFileConfigurationService(opts.ConfigFiles).LoadConfiguration()
	if err != nil {
		logger.Fatalf("failed to load configuration: %v", err)
	}

	logger.SetLevel(conf.Logging.Level.LogrusLevel())
	if dest := conf.Logging.Destination; dest.Type == "file" && dest.Path != "" {
		f, err := os.OpenFile(dest.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Fatalf("failed to open log destination: %v", err)
		}
		logger.SetOutput(f)
	}

	if conf.Database == nil {
		logger.Fatal("no database configured")
	}
	if d := conf.Database.Dialect; d != "" && d != "postgres" {
		logger.Fatalf("unsupported database dialect %q", d)
	}

	store, err := postgres.Open(conf.Database.Connection,
		postgres.WithLogger(logger.WithField("facility", "store")))
	if err != nil {
		logger.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	manager := challenge.NewManager(store,
		challenge.WithLifetime(conf.ChallengeLifetime()),
		challenge.WithTruthLength(conf.TruthLength()),
		challenge.WithLogger(logger.WithField("facility", "challenge")))
	guard := authz.NewGuard(authz.NewEngine(store), challenge.NewValidator(manager))
	throttle := tlhttp.NewSolutionThrottle(
		conf.Application.Throttle.MaxFailures,
		time.Duration(conf.Application.Throttle.Window))

	errs := make(chan error, len(conf.Web)+1)
	launch := func(addr string, tlsConfig *tls.Config, proxied bool) {
		s := &tlhttp.Server{
			Addr:             addr,
			TLSConfig:        tlsConfig,
			Proxied:          proxied,
			CORSOrigins:      conf.Application.CORSOrigins,
			UserService:      store,
			TodoService:      store,
			ProjectService:   store,
			ChallengeService: manager,
			Guard:            guard,
			Throttle:         throttle,
			Logger:           logger.WithField("facility", "http"),
		}
		go func() {
			errs <- s.Listen()
		}()
	}

	if len(conf.Web) == 0 {
		launch("0.0.0.0:8080", nil, false)
	}
	for _, w := range conf.Web {
		var tlsConfig *tls.Config
		if w.SSL != nil {
			cert, err := tls.LoadX509KeyPair(w.SSL.Certificate, w.SSL.Key)
			if err != nil {
				logger.Fatalf("failed to load certificate for %s: %v", w.Bind, err)
			}
			tlsConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
		}
		launch(w.Bind, tlsConfig, w.Proxied)
	}

	logger.Fatal(<-errs)
}
