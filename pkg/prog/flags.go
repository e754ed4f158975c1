package prog

import "flag"

// FlagSet wraps a [flag.FlagSet] and provides flags that several subprograms
// share. Each shared flag is registered the first time its method is called.
type FlagSet struct {
	*flag.FlagSet
	json *bool
	db   *string
}

// JSON returns a pointer to the value of the -json flag.
func (fs *FlagSet) JSON() *bool {
	if fs.json == nil {
		var json bool
		fs.BoolVar(&json, "json", false,
			"Show the output from -buildinfo or -check in JSON")
		fs.json = &json
	}
	return fs.json
}

// DB returns a pointer to the value of the -db flag.
func (fs *FlagSet) DB() *string {
	if fs.db == nil {
		var db string
		fs.StringVar(&db, "db", "",
			"Path to the database of cell edits; defaults to $ELVX_DB")
		fs.db = &db
	}
	return fs.db
}
