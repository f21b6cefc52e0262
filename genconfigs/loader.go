package genconfigs

import (
	_ "embed"
	"os"
	"path/filepath"

	"github.com/reusee/patgen/cmds"
	"github.com/reusee/patgen/configs"
	"github.com/reusee/patgen/logs"
)

//go:embed schema.cue
var Schema string

var configFiles = cmds.Collect[string]("-config", "load an extra config file, before the discovered ones")

var filenames = []string{
	"patgen.cue",
	".patgen.cue",
}

// Paths lists the config files found in dirs, in the order given.
func Paths(dirs ...string) []string {
	var paths []string
	for _, dir := range dirs {
		for _, filename := range filenames {
			path := filepath.Join(dir, filename)
			if _, err := os.Stat(path); err == nil {
				paths = append(paths, path)
			}
		}
	}
	return paths
}

// searchDirs returns the working directory, the user config directory
// and /etc, most specific first.
func searchDirs() []string {
	var dirs []string
	if workingDir, err := os.Getwd(); err == nil {
		dirs = append(dirs, workingDir)
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, configDir)
	}
	dirs = append(dirs, "/etc")
	return dirs
}

func (Module) ConfigsLoader(
	logger logs.Logger,
) configs.Loader {
	paths := append([]string(nil), *configFiles...)
	paths = append(paths, Paths(searchDirs()...)...)
	if len(paths) > 0 {
		logger.Info("config file",
			"paths", paths,
		)
	}
	return configs.NewLoader(paths, Schema)
}
