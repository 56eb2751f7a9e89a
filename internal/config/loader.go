// Package config loads the .unarc configuration file and creates AWS clients from it.
package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-ini/ini"
)

// FileName is the name of the configuration file.
const FileName = ".unarc"

// Loader can be used for loading .unarc configuration as well as overridden with default settings.
type Loader struct {
	// Profile is the AWS profile to use, taking precedence over bucket-based AWS profile setting.
	Profile string

	cfg           *ini.File
	s3clientCache sync.Map
}

// Load will traverse the directory hierarchy upwards from the working directory to find the first ".unarc" file
// available and load its contents into the Loader.
//
// The name of the .unarc file is returned, empty if none was found.
func (l *Loader) Load(ctx context.Context) (string, error) {
	cur, err := os.Getwd()
	if err != nil {
		return "", err
	}

	return l.LoadFrom(ctx, cur)
}

// LoadFrom is a variant of Load that starts from the given directory.
func (l *Loader) LoadFrom(ctx context.Context, dir string) (string, error) {
	for cur := dir; ; {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		path := filepath.Join(cur, FileName)
		fi, err := os.Stat(path)
		switch {
		case err == nil && !fi.IsDir():
			if l.cfg, err = ini.Load(path); err != nil {
				l.cfg = ini.Empty()
				return path, err
			}

			return path, nil
		case err == nil, errors.Is(err, os.ErrNotExist):
			parent := filepath.Dir(cur)
			if parent == cur {
				return "", nil
			}

			cur = parent
		default:
			return "", err
		}
	}
}

// DefaultLoader is the default Loader instance for package-level methods.
var DefaultLoader = &Loader{cfg: ini.Empty()}

// Load calls Loader.Load on the DefaultLoader instance.
func Load(ctx context.Context) (string, error) {
	return DefaultLoader.Load(ctx)
}

func (l *Loader) section(name string) (*ini.Section, error) {
	if l.cfg == nil {
		l.cfg = ini.Empty()
	}
	return l.cfg.GetSection(name)
}
