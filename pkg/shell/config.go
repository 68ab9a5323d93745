package shell

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML session file, given with -config.
type Config struct {
	// Libraries are artifact coordinates ("name" or "name@version")
	// resolved against Roots and added to the registry's runtime tier.
	Libraries []string `yaml:"libraries"`
	// Roots are the directories coordinates are resolved in.
	Roots []string `yaml:"roots"`
	// Bootstrap is extra code evaluated with the built-in bootstrap
	// fragment, before the first user fragment.
	Bootstrap string `yaml:"bootstrap"`
	// HistFile is the path of the file-backed history store.
	HistFile string `yaml:"histfile"`
	// DB is the path of the bolt-backed history store. The -db flag takes
	// precedence. DB wins over HistFile when both are set.
	DB string `yaml:"db"`
	// Unrestricted exposes the symbols the runtime gates by default, such
	// as os.Exit.
	Unrestricted bool `yaml:"unrestricted"`
}

func loadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read session config: %w", err)
	}
	if err := yaml.Unmarshal(bs, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse session config %q: %w", path, err)
	}
	return cfg, nil
}
