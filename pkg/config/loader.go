package config

import (
	"errors"
	"os"
	"path/filepath"

	cos "github.com/giongto35/camview/pkg/os"
	"github.com/kkyr/fig"
)

const (
	EnvPrefix = "CAMVIEW"
	FileName  = "config.yaml"
)

// Find returns the path of the first configuration file found.
// The path param specifies a custom path to the file or its directory.
func Find(path string) (string, error) {
	if path != "" {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			path = filepath.Join(path, FileName)
		}
		if _, err := os.Stat(path); err != nil {
			return "", err
		}
		return path, nil
	}
	dirs := []string{".", "configs", "../../configs"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".camview"))
	}
	for _, dir := range dirs {
		if p := filepath.Join(dir, FileName); cos.Exists(p) {
			return p, nil
		}
	}
	return "", cos.ErrNotExist
}

// LoadConfig loads a configuration file into the given struct.
// Reads and puts environment variables with the prefix CAMVIEW_.
// Params from the config should be in uppercase separated with _.
// Without any file only defaults and env are used, the returned path is empty then.
func LoadConfig(config any, path string) (string, error) {
	file, err := Find(path)
	if err != nil {
		if path != "" || !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		return "", LoadConfigEnv(config)
	}
	dir, name := filepath.Split(file)
	if dir == "" {
		dir = "."
	}
	if err := fig.Load(config, fig.File(name), fig.Dirs(dir), fig.UseEnv(EnvPrefix)); err != nil {
		return "", err
	}
	return file, nil
}

// LoadConfigEnv fills config from its defaults and the environment.
func LoadConfigEnv(config any) error {
	// fig always decodes a file, an empty JSON object stands in for it
	f, err := os.CreateTemp("", "camview-*.json")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(f.Name()) }()
	_, err = f.WriteString("{}")
	if err1 := f.Close(); err == nil {
		err = err1
	}
	if err != nil {
		return err
	}
	return fig.Load(config, fig.File(filepath.Base(f.Name())), fig.Dirs(filepath.Dir(f.Name())), fig.UseEnv(EnvPrefix))
}
