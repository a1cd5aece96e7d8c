// Package config loads and saves the savekeep configuration and the list of
// tracked save folders.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables that override file values.
// SAVEKEEP_BACKUP_ROOT maps to backup.root.
const EnvPrefix = "SAVEKEEP_"

// ErrItemNotFound is returned when no item matches a lookup.
var ErrItemNotFound = errors.New("item not found")

// Item is a tracked save folder.
type Item struct {
	ID          string    `yaml:"id" koanf:"id"`
	Name        string    `yaml:"name" koanf:"name"`
	SavePath    string    `yaml:"save_path" koanf:"save_path"`
	Fingerprint string    `yaml:"fingerprint,omitempty" koanf:"fingerprint"`
	LastBackup  time.Time `yaml:"last_backup,omitempty" koanf:"last_backup"`
}

// Config is the on-disk savekeep configuration.
type Config struct {
	Backup struct {
		Root          string `yaml:"root" koanf:"root"`
		AutoOnStartup bool   `yaml:"auto_on_startup" koanf:"auto_on_startup"`
	} `yaml:"backup" koanf:"backup"`
	Retention struct {
		KeepLast int `yaml:"keep_last" koanf:"keep_last"`
	} `yaml:"retention" koanf:"retention"`
	Log struct {
		Level string `yaml:"level" koanf:"level"`
	} `yaml:"log" koanf:"log"`
	Items []Item `yaml:"items" koanf:"items"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}
	cfg := &Config{}
	cfg.Backup.Root = filepath.Join(home, "SaveBackups")
	cfg.Backup.AutoOnStartup = true
	cfg.Retention.KeepLast = 2
	cfg.Log.Level = "info"
	return cfg, nil
}

// ConfigPath returns ~/.savekeep/config.yaml.
func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".savekeep", "config.yaml"), nil
}

// Load reads the config at path over the defaults and applies SAVEKEEP_*
// environment overrides. An empty path means ConfigPath. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return nil, err
		}
	}
	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("checking config file %s: %w", path, err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// envKey maps SAVEKEEP_BACKUP_AUTO_ON_STARTUP to backup.auto_on_startup.
// Only the first underscore separates section from key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// Save writes the config to path, or to ConfigPath when path is empty.
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}

// AddItem appends a new item with a fresh ID and returns it.
func (c *Config) AddItem(name, savePath string) (*Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("item name is empty")
	}
	if strings.TrimSpace(savePath) == "" {
		return nil, errors.New("save path is empty")
	}
	for _, it := range c.Items {
		if strings.EqualFold(it.Name, name) {
			return nil, fmt.Errorf("an item named %q already exists", it.Name)
		}
	}
	c.Items = append(c.Items, Item{
		ID:       uuid.NewString(),
		Name:     name,
		SavePath: strings.TrimSpace(savePath),
	})
	return &c.Items[len(c.Items)-1], nil
}

// FindItem returns the item whose ID, unique ID prefix or name
// (case-insensitive) matches ref.
func (c *Config) FindItem(ref string) (*Item, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrItemNotFound
	}
	for i := range c.Items {
		if c.Items[i].ID == ref {
			return &c.Items[i], nil
		}
	}
	for i := range c.Items {
		if strings.EqualFold(c.Items[i].Name, ref) {
			return &c.Items[i], nil
		}
	}
	var match *Item
	for i := range c.Items {
		if strings.HasPrefix(c.Items[i].ID, strings.ToLower(ref)) {
			if match != nil {
				return nil, fmt.Errorf("%q matches more than one item", ref)
			}
			match = &c.Items[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, ref)
	}
	return match, nil
}

// RemoveItem deletes the item matching ref and returns it.
func (c *Config) RemoveItem(ref string) (Item, error) {
	it, err := c.FindItem(ref)
	if err != nil {
		return Item{}, err
	}
	removed := *it
	for i := range c.Items {
		if c.Items[i].ID == removed.ID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			break
		}
	}
	return removed, nil
}
