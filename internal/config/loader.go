package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/fyrsmithlabs/cadence/internal/sanitize"
)

const (
	maxConfigFileSize = 1 << 20

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "CADENCE_"

	systemConfigDir = "/etc/cadence"
)

// Load builds configuration from defaults and environment variables.
func Load() (*Config, error) {
	return load(nil, "")
}

// LoadWithFile layers defaults, the YAML file at path and the environment.
//
// An empty path means ~/.config/cadence/config.yaml, and a missing file is
// not an error. The file must live under ~/.config/cadence/ or
// /etc/cadence/, be owner-only (0600 or 0400) and at most 1MB, since it may
// hold source API keys.
//
// Environment variables map onto sections at their first underscore:
//
//	CADENCE_SERVER_HTTP_PORT=9191                    -> server.http_port
//	CADENCE_CACHE_DEGRADED_TTL=2m                    -> cache.degraded_ttl
//	CADENCE_SERVER_CORS_ORIGINS=https://a,https://b  -> server.cors_origins (list)
//	CADENCE_SOURCES_OVERRIDES=nutrition=llm,stress=http -> sources.overrides (map)
func LoadWithFile(path string) (*Config, error) {
	if path == "" {
		dir, err := userConfigDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	resolved, err := allowedConfigPath(path)
	if err != nil {
		return nil, err
	}
	content, err := readConfigFile(resolved)
	if err != nil {
		return nil, err
	}
	return load(content, resolved)
}

func load(file []byte, name string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider([]byte(defaultYAML)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if file != nil {
		if err := k.Load(rawbytes.Provider(file), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	}
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps CADENCE_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

// envValue maps one environment variable to its key and typed value. List
// and map settings are comma separated.
func envValue(name, value string) (string, any) {
	key := envKey(name)
	switch key {
	case "server.cors_origins":
		return key, splitList(value)
	case "sources.overrides":
		overrides := map[string]any{}
		for _, pair := range splitList(value) {
			id, mode, ok := strings.Cut(pair, "=")
			if !ok {
				// Left for Validate to reject as an unknown mode.
				overrides[strings.TrimSpace(pair)] = ""
				continue
			}
			overrides[strings.TrimSpace(id)] = strings.TrimSpace(mode)
		}
		return key, overrides
	}
	return key, value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func userConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "cadence"), nil
}

// allowedConfigPath resolves symlinks and checks the result sits under one
// of the config roots.
func allowedConfigPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	if target, err := filepath.EvalSymlinks(abs); err == nil {
		abs = target
	}

	userDir, err := userConfigDir()
	if err != nil {
		return "", err
	}
	for _, root := range []string{userDir, systemConfigDir} {
		if target, err := filepath.EvalSymlinks(root); err == nil {
			root = target
		}
		if resolved, err := sanitize.ValidatePath(abs, root); err == nil {
			return resolved, nil
		}
	}
	return "", fmt.Errorf("config file %s must be in ~/.config/cadence/ or %s/", path, systemConfigDir)
}

// readConfigFile returns nil content when the file does not exist.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if perm := info.Mode().Perm(); runtime.GOOS != "windows" && perm&0o077 != 0 {
		return nil, fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return content, nil
}
