package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/elves/elvx/pkg/env"
	"github.com/elves/elvx/pkg/express"
	"github.com/elves/elvx/pkg/prog"
	"github.com/elves/elvx/pkg/store"
)

// Program is the subprogram that serves an express app over HTTP.
type Program struct {
	web    bool
	listen string
	config string
	db     *string
}

func (p *Program) RegisterFlags(fs *prog.FlagSet) {
	fs.BoolVar(&p.web, "web", false, "Serve an express app over HTTP")
	fs.StringVar(&p.listen, "listen", "",
		"Address for -web to listen on; defaults to "+DefaultListen)
	fs.StringVar(&p.config, "config", "",
		"YAML configuration file for -web; defaults to $"+env.ELVX_CONFIG)
	p.db = fs.DB()
}

func (p *Program) Run(fds [3]*os.File, args []string) error {
	if !p.web {
		return prog.ErrNextProgram
	}
	if len(args) > 1 {
		return prog.BadUsage("at most one script may be given")
	}
	cfg, err := p.loadConfig()
	if err != nil {
		return err
	}
	file := cfg.App
	if len(args) == 1 {
		file = args[0]
	}

	runner := &express.Runner{Stderr: fds[2]}
	var st PatchStore
	if cfg.DB != "" {
		s, err := store.Open(cfg.DB)
		if err != nil {
			return err
		}
		defer s.Close()
		runner.Patches = s
		st = s
	}
	app, err := express.WrapApp(file, runner)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	server := &http.Server{Addr: cfg.Listen, Handler: NewServer(app, st, cfg.AllowedOrigins)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
	logger.Printf("serving %s on %s", app.File, cfg.Listen)
	fmt.Fprintf(fds[2], "Serving %s on http://%s\n", app.File, cfg.Listen)
	err = server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Builds the configuration from the configuration file, environment variables
// and flags, later sources taking precedence.
func (p *Program) loadConfig() (*Config, error) {
	cfg := &Config{}
	path := p.config
	if path == "" {
		path = os.Getenv(env.ELVX_CONFIG)
	}
	if path != "" {
		var err error
		cfg, err = LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}
	if db := os.Getenv(env.ELVX_DB); db != "" {
		cfg.DB = db
	}
	if *p.db != "" {
		cfg.DB = *p.db
	}
	if p.listen != "" {
		cfg.Listen = p.listen
	}
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	return cfg, nil
}
