package web

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultListen is the address the server listens on unless configured
// otherwise.
const DefaultListen = "localhost:8000"

// Config is the configuration of the web server, usually read from a YAML
// file:
//
//	listen: localhost:8000
//	db: /var/lib/elvx/edits.db
//	app: app.elv
//	allowed-origins: [https://example.com]
type Config struct {
	// Address to listen on.
	Listen string `yaml:"listen"`
	// Path to the database of cell edits. Empty disables editing.
	DB string `yaml:"db"`
	// Path to the script, used when none is given on the command line.
	App string `yaml:"app"`
	// Origins that may make cross-origin requests. Empty disables CORS.
	AllowedOrigins []string `yaml:"allowed-origins"`
}

// LoadConfig reads a YAML configuration file. Unknown keys are errors.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}
