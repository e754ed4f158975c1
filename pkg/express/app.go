package express

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/elves/elvx/pkg/env"
	"github.com/elves/elvx/pkg/htm"
	"github.com/elves/elvx/pkg/session"
)

// ConfigError is returned by WrapApp when it cannot determine the script to
// run.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

// App is an express app wrapped for serving.
type App struct {
	// File is the absolute path of the script.
	File string
	// UI is the UI built when the app was wrapped.
	UI     htm.Node
	Runner *Runner
}

// WrapApp runs the script in file once to build its UI, and returns an App
// that runs it again for every session. If file is empty, it is read from the
// ELVX_APP_FILE environment variable, relative to the working directory.
func WrapApp(file string, r *Runner) (*App, error) {
	if file == "" {
		name := os.Getenv(env.ELVX_APP_FILE)
		if name == "" {
			return nil, &ConfigError{
				"no app file was specified and the " + env.ELVX_APP_FILE +
					" environment variable is not set"}
		}
		file = name
	}
	file, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}
	if r == nil {
		r = &Runner{}
	}
	ctx := session.NewContext(context.Background(), session.New())
	ui, err := r.Run(ctx, file)
	if err != nil {
		return nil, err
	}
	return &App{File: file, UI: ui, Runner: r}, nil
}

// Server runs the script for the session carried by ctx and returns the UI it
// builds. Errors are logged and written to the runner's Stderr before they
// are returned.
func (a *App) Server(ctx context.Context) (htm.Node, error) {
	ui, err := a.Runner.Run(ctx, a.File)
	if err != nil {
		logger.Printf("running %s: %v", a.File, err)
		if a.Runner.Stderr != nil {
			fmt.Fprintf(a.Runner.Stderr, "error running %s: %v\n", a.File, err)
		}
		return nil, err
	}
	return ui, nil
}
