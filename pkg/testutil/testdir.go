package testutil

import (
	"os"
	"path/filepath"
)

// TempDir creates a temporary directory for the duration of a test and
// returns its path, with symlinks resolved.
func TempDir(c Cleanuper) string {
	dir, err := os.MkdirTemp("", "elvxtest.")
	if err != nil {
		panic(err)
	}
	dir, err = filepath.EvalSymlinks(dir)
	if err != nil {
		panic(err)
	}
	c.Cleanup(func() {
		if err := os.RemoveAll(dir); err != nil {
			println("failed to remove temp dir", dir)
		}
	})
	return dir
}

// Chdir changes into a directory for the duration of a test.
func Chdir(c Cleanuper, dir string) string {
	oldWd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	if err := os.Chdir(dir); err != nil {
		panic(err)
	}
	c.Cleanup(func() {
		if err := os.Chdir(oldWd); err != nil {
			panic(err)
		}
	})
	return dir
}

// InTempDir is equivalent to Chdir(c, TempDir(c)).
func InTempDir(c Cleanuper) string {
	return Chdir(c, TempDir(c))
}

// Dir describes the layout of a directory. Each value is either a string,
// the content of a regular file, or a nested Dir.
type Dir map[string]any

// ApplyDir creates the files and directories described by dir in the working
// directory.
func ApplyDir(dir Dir) {
	applyDir(dir, "")
}

func applyDir(dir Dir, prefix string) {
	for name, file := range dir {
		path := filepath.Join(prefix, name)
		switch file := file.(type) {
		case string:
			if err := os.WriteFile(path, []byte(file), 0644); err != nil {
				panic(err)
			}
		case Dir:
			if err := os.MkdirAll(path, 0755); err != nil {
				panic(err)
			}
			applyDir(file, path)
		default:
			panic("file is neither string nor Dir")
		}
	}
}
