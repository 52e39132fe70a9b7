package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/umputun/go-flags"

	"github.com/umputun/toolkit/app/server"
	"github.com/umputun/toolkit/app/store"
	"github.com/umputun/toolkit/app/tools"
	"github.com/umputun/toolkit/app/transform"
)

type options struct {
	Listen string `long:"listen" env:"LISTEN" default:":8080" description:"listen address"`
	Tools  string `long:"tools" env:"TOOLS" description:"tool catalog file, embedded catalog if not set"`

	Remote struct {
		URL     string        `long:"url" env:"URL" default:"http://localhost:8005" description:"remote transform api url"`
		Timeout time.Duration `long:"timeout" env:"TIMEOUT" default:"30s" description:"remote call timeout"`
	} `group:"remote" namespace:"remote" env-namespace:"REMOTE"`

	Stats struct {
		DB        string        `long:"db" env:"DB" description:"sqlite file for submission journal, in-memory if not set"`
		Retention time.Duration `long:"retention" env:"RETENTION" default:"168h" description:"journal retention"`
	} `group:"stats" namespace:"stats" env-namespace:"STATS"`

	Limit                float64 `long:"limit" env:"LIMIT" default:"10" description:"api requests per second per client"`
	AuthHash             string  `long:"auth-hash" env:"AUTH_HASH" description:"bcrypt hash of the password for basic auth"`
	Protocol             string  `long:"protocol" env:"PROTOCOL" choice:"http" choice:"https" default:"http" description:"site protocol"`
	ProxySecurityHeaders bool    `long:"proxy-security-headers" env:"PROXY_SECURITY_HEADERS" description:"security headers are set by the proxy"`
	IPSalt               string  `long:"ip-salt" env:"IP_SALT" description:"secret for client ip hashing in logs, random if not set"`
	Dbg                  bool    `long:"dbg" env:"DEBUG" description:"debug mode"`
}

var revision = "local"

func main() {
	fmt.Printf("toolkit %s\n", revision)

	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	if opts.IPSalt == "" {
		opts.IPSalt = randomSalt()
	}
	setupLog(opts.Dbg, opts.AuthHash, opts.IPSalt)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	catalog, err := loadCatalog(opts.Tools)
	if err != nil {
		return err
	}

	journal, err := makeJournal(opts.Stats.DB, opts.Stats.Retention)
	if err != nil {
		return err
	}
	defer journal.Close() // nolint

	remote := transform.New(transform.Params{BaseURL: opts.Remote.URL, Timeout: opts.Remote.Timeout})
	log.Printf("[INFO] remote transform api %s, timeout %v", remote.BaseURL, remote.Timeout)

	srv, err := server.New(server.Config{
		Listen:               opts.Listen,
		Protocol:             opts.Protocol,
		AuthHash:             opts.AuthHash,
		Limit:                opts.Limit,
		IPSalt:               opts.IPSalt,
		ProxySecurityHeaders: opts.ProxySecurityHeaders,
		Version:              revision,
	}, catalog, remote, journal)
	if err != nil {
		return fmt.Errorf("can't make server: %w", err)
	}
	return srv.Run(ctx)
}

func loadCatalog(fname string) (*tools.Registry, error) {
	if fname == "" {
		return tools.Default(), nil
	}
	catalog, err := tools.LoadFile(fname)
	if err != nil {
		return nil, fmt.Errorf("can't load tools from %s: %w", fname, err)
	}
	log.Printf("[INFO] loaded %d tools from %s", len(catalog.All()), fname)
	return catalog, nil
}

func makeJournal(dbFile string, retention time.Duration) (*store.SQLite, error) {
	if dbFile == "" {
		return store.NewInMemory(retention), nil
	}
	journal, err := store.NewSQLite(dbFile, retention)
	if err != nil {
		return nil, fmt.Errorf("can't open journal: %w", err)
	}
	return journal, nil
}

func randomSalt() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		log.Fatalf("[ERROR] can't make ip salt, %v", err)
	}
	return hex.EncodeToString(buf[:])
}

func setupLog(dbg bool, secrets ...string) {
	logOpts := []log.Option{log.Msec, log.LevelBraces, log.StackTraceOnError}
	if dbg {
		logOpts = []log.Option{log.Debug, log.CallerFile, log.CallerFunc, log.Msec, log.LevelBraces, log.StackTraceOnError}
	}

	var masked []string
	for _, s := range secrets {
		if s != "" {
			masked = append(masked, s)
		}
	}
	if len(masked) > 0 {
		logOpts = append(logOpts, log.Secret(masked...))
	}
	log.SetupStdLogger(logOpts...)
	log.Setup(logOpts...)
}
