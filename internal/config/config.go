// Package config loads the settings needed to talk to Checkmarx One.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file read when no path is given.
const DefaultPath = "config.json"

// EnvPrefix prefixes the environment variables that override file values, e.g. CXONE_API_KEY.
const EnvPrefix = "CXONE"

// ErrConfigLoad is returned when the configuration file cannot be opened or parsed.
var ErrConfigLoad = errors.New("error loading configuration file")

// ErrMissingAPIURL is returned by Validate when api_url is empty.
var ErrMissingAPIURL = errors.New("api_url missing in configuration")

// errInvalidEmailTo is returned when email_to is neither a string nor a list of strings.
var errInvalidEmailTo = errors.New("email_to must be a string or a list of strings")

// keys are the settings read from the file and bound to the environment.
var keys = []string{"iam_url", "tenant_name", "api_key", "api_url", "email_to"}

// Config holds the settings of a single run. It is not modified after Load returns.
type Config struct {
	// Raw holds every key of the source document.
	Raw        map[string]interface{} `mapstructure:"-"`
	IAMURL     string                 `mapstructure:"iam_url"`
	TenantName string                 `mapstructure:"tenant_name"`
	APIKey     string                 `mapstructure:"api_key"`
	APIURL     string                 `mapstructure:"api_url"`
	// EmailTo is always a list, even when the file holds a single address.
	EmailTo []string `mapstructure:"-"`
}

// Load reads the configuration file at path, JSON unless the extension says YAML.
// Values can be overridden with CXONE_* environment variables.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	ext := strings.ToLower(filepath.Ext(path))
	isYAML := ext == ".yaml" || ext == ".yml"
	if !isYAML {
		v.SetConfigType("json")
	}
	v.SetEnvPrefix(EnvPrefix)
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("%w %s: binding %s: %w", ErrConfigLoad, path, key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrConfigLoad, path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrConfigLoad, path, err)
	}

	emails, err := normalizeEmails(v.Get("email_to"))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrConfigLoad, path, err)
	}
	cfg.EmailTo = emails

	// viper lowercases keys and splits dotted ones, so Raw comes straight from the file
	raw, err := readRaw(path, isYAML)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrConfigLoad, path, err)
	}
	cfg.Raw = raw

	return &cfg, nil
}

// LoadDotEnv exports the variables of a .env file into the process environment.
// A missing file is not an error; variables already set are left untouched.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// Validate checks what must hold before any network call is made.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return ErrMissingAPIURL
	}
	return nil
}

// readRaw decodes the file as written, without environment overrides.
func readRaw(path string, isYAML bool) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]interface{}
	if isYAML {
		err = yaml.Unmarshal(data, &raw)
	} else {
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}
	return raw, nil
}

// normalizeEmails turns a single address into a one element list and passes lists through.
func normalizeEmails(value interface{}) ([]string, error) {
	switch e := value.(type) {
	case nil:
		return []string{}, nil
	case string:
		if e == "" {
			return []string{}, nil
		}
		return []string{e}, nil
	case []string:
		return e, nil
	case []interface{}:
		emails := make([]string, 0, len(e))
		for _, item := range e {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: got %T in list", errInvalidEmailTo, item)
			}
			emails = append(emails, s)
		}
		return emails, nil
	default:
		return nil, fmt.Errorf("%w: got %T", errInvalidEmailTo, value)
	}
}
