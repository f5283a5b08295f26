package rasterview

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesrr39/goutil/errorsx"
)

// ConfigFileName is the per-user configuration file in the home directory.
const ConfigFileName = ".gcv"

// Config is the user configuration. Lines are key=value; Rule lines are
// stretch rules in evaluation order and Driver names the output driver.
// Other keys are ignored.
type Config struct {
	Driver string
	Rules  StretchRuleList
}

// DefaultConfigPath returns $HOME/.gcv.
func DefaultConfigPath() (string, errorsx.Error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errorsx.Wrap(err)
	}
	return filepath.Join(home, ConfigFileName), nil
}

// LoadConfig reads the configuration at path. A missing file yields the
// default rules; a malformed rule is an error. When no Rule lines are
// present the default rules are used.
func LoadConfig(path string) (*Config, errorsx.Error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{Rules: DefaultStretchRules()}, nil
		}
		return nil, errorsx.Wrap(err, "path", path)
	}
	defer f.Close()

	conf, err := ParseConfig(f)
	if err != nil {
		return nil, errorsx.Wrap(err, "path", path)
	}
	return conf, nil
}

// ParseConfig reads configuration lines from r.
func ParseConfig(r io.Reader) (*Config, errorsx.Error) {
	conf := new(Config)

	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		switch key {
		case "Driver":
			conf.Driver = value
		case "Rule":
			rule, err := ParseStretchRule(value)
			if err != nil {
				return nil, errorsx.Wrap(err, "line", lineNumber)
			}
			conf.Rules = append(conf.Rules, rule)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errorsx.Wrap(err)
	}

	if len(conf.Rules) == 0 {
		conf.Rules = DefaultStretchRules()
	}
	return conf, nil
}
