// Package env keeps names of environment variables with special significance to
// elvx.
package env

// Environment variables with special significance to elvx.
const (
	// Path of the express app to run when none is given explicitly.
	ELVX_APP_FILE = "ELVX_APP_FILE"
	// Path of the configuration file of the web server.
	ELVX_CONFIG = "ELVX_CONFIG"
	// Path of the patch database of the web server.
	ELVX_DB = "ELVX_DB"
)
