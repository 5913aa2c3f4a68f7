package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/goosewin/kotoba/internal/llama"
)

const envPrefix = "KOTOBA"

// Paths records which files fed the current configuration.
type Paths struct {
	Default string
	Global  string
	Project string
}

var (
	currentConfig *viper.Viper
	currentPaths  Paths
)

// defaults apply beneath every file layer.
var defaults = map[string]interface{}{
	"model.name":           "gemma-3-4b-it",
	"runner.context_size":  llama.DefaultContextSize,
	"runner.temperature":   llama.DefaultTemperature,
	"runner.max_tokens":    llama.DefaultMaxTokens,
	"languages.local":      "ja",
	"languages.foreign":    "en",
	"logging.env":          "development",
	"logging.level":        "info",
	"server.host":          "127.0.0.1",
	"server.port":          8750,
	"server.max_body_size": 64 * 1024,
	"server.rate_limit":    0,
	"server.rate_burst":    4,
}

// LoadConfig builds the configuration from built-in defaults, then the
// default, global and project files in increasing priority. KOTOBA_* env
// variables override all of them.
func LoadConfig(projectDir string) (Paths, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	paths := Paths{
		Default: defaultConfigPath(),
		Global:  globalConfigPath(),
		Project: projectConfigPath(projectDir),
	}
	for _, path := range []string{paths.Default, paths.Global, paths.Project} {
		if err := mergeFile(v, path); err != nil {
			return paths, err
		}
	}

	currentConfig = v
	currentPaths = paths
	return paths, nil
}

// CurrentPaths returns the files used by the last LoadConfig.
func CurrentPaths() Paths {
	return currentPaths
}

// GetConfig returns the effective value of key as a string.
func GetConfig(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	if envName, ok := shortEnvNames()[key]; ok {
		if value, found := os.LookupEnv(envName); found {
			return value, true
		}
	}
	if currentConfig == nil || !currentConfig.IsSet(key) {
		return "", false
	}
	return stringify(currentConfig.Get(key)), true
}

// Explicit returns key's value only when a config file or the environment
// sets it; built-in defaults do not count.
func Explicit(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	if envName, ok := shortEnvNames()[key]; ok {
		if value, found := os.LookupEnv(envName); found && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), true
		}
	}
	envName := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	if value, found := os.LookupEnv(envName); found && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value), true
	}
	if currentConfig == nil || !currentConfig.InConfig(key) {
		return "", false
	}
	value := strings.TrimSpace(stringify(currentConfig.Get(key)))
	return value, value != ""
}

// SetConfig persists key=value in the global config file.
func SetConfig(key, value string) error {
	if key == "" {
		return errors.New("config key is required")
	}
	path := globalConfigPath()
	if path == "" {
		return errors.New("global config path is not available")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	if fileExists(path) {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read global config: %w", err)
		}
	}
	v.Set(key, value)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write global config: %w", err)
	}

	if currentConfig != nil {
		currentConfig.Set(key, value)
	}
	return nil
}

// ListConfig flattens the effective configuration into dotted keys.
func ListConfig() (map[string]string, error) {
	if currentConfig == nil {
		return nil, errors.New("config not loaded")
	}
	out := map[string]string{}
	flatten("", currentConfig.AllSettings(), out)
	return out, nil
}

// Keys returns the known configuration keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(defaults)+4)
	for key := range defaults {
		keys = append(keys, key)
	}
	keys = append(keys, "model.kind", "model.weights", "model.dir", "model.catalog", "runner.executable", "server.token")
	sort.Strings(keys)
	return keys
}

// String returns the trimmed value of key, or fallback when unset or blank.
func String(key, fallback string) string {
	if value, ok := GetConfig(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

// Int returns key as a positive integer, or fallback.
func Int(key string, fallback int) int {
	if value, ok := GetConfig(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

// Float returns key as a float, or fallback.
func Float(key string, fallback float64) float64 {
	if value, ok := GetConfig(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// RunnerSettings reads the runner.* keys. The weights path is filled in by
// the caller once a model is chosen.
func RunnerSettings() llama.Config {
	return llama.Config{
		Executable:  expandHome(String("runner.executable", "")),
		ContextSize: Int("runner.context_size", llama.DefaultContextSize),
		Temperature: Float("runner.temperature", llama.DefaultTemperature),
		MaxTokens:   Int("runner.max_tokens", llama.DefaultMaxTokens),
	}
}

// ModelsDir is where catalog weight files are expected.
func ModelsDir() string {
	if dir := String("model.dir", ""); dir != "" {
		return expandHome(dir)
	}
	if base := configDir(); base != "" {
		return filepath.Join(base, "models")
	}
	return "models"
}

// CatalogPath is the optional user catalog merged over the built-in one.
func CatalogPath() string {
	if path := String("model.catalog", ""); path != "" {
		return expandHome(path)
	}
	if base := configDir(); base != "" {
		return filepath.Join(base, "models.yaml")
	}
	return ""
}

// ExpandHome resolves a leading ~ against the user's home directory.
func ExpandHome(path string) string {
	return expandHome(path)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func defaultConfigPath() string {
	if path, ok := os.LookupEnv(envPrefix + "_DEFAULT_CONFIG"); ok && path != "" {
		return path
	}

	var candidates []string
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(dir, "config", "default.yaml"),
			filepath.Join(dir, "..", "share", "kotoba", "default.yaml"),
		)
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, "config", "default.yaml"))
	}

	for _, candidate := range candidates {
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

func globalConfigPath() string {
	if path, ok := os.LookupEnv(envPrefix + "_GLOBAL_CONFIG"); ok && path != "" {
		return path
	}
	dir := configDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

func projectConfigPath(projectDir string) string {
	if projectDir == "" {
		return ""
	}
	if info, err := os.Stat(projectDir); err != nil || !info.IsDir() {
		return ""
	}
	name := os.Getenv(envPrefix + "_PROJECT_CONFIG_NAME")
	if name == "" {
		name = ".kotoba.yaml"
	}
	return filepath.Join(projectDir, name)
}

func configDir() string {
	if path, ok := os.LookupEnv(envPrefix + "_CONFIG_DIR"); ok && path != "" {
		return path
	}
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "kotoba")
	}
	return ""
}

func mergeFile(v *viper.Viper, path string) error {
	if !fileExists(path) {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("merge config %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// shortEnvNames lets the most common settings be overridden without the
// dotted-key spelling.
func shortEnvNames() map[string]string {
	return map[string]string{
		"model.name":        envPrefix + "_MODEL",
		"model.weights":     envPrefix + "_WEIGHTS",
		"runner.executable": envPrefix + "_LLAMA_CLI",
		"logging.level":     envPrefix + "_LOG_LEVEL",
	}
}

func stringify(value interface{}) string {
	switch typed := value.(type) {
	case []string:
		return strings.Join(typed, ",")
	case []interface{}:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(value)
	}
}

func flatten(prefix string, value interface{}, out map[string]string) {
	switch typed := value.(type) {
	case nil:
		return
	case map[string]interface{}:
		for key, item := range typed {
			flatten(joinKey(prefix, key), item, out)
		}
	case map[interface{}]interface{}:
		for key, item := range typed {
			flatten(joinKey(prefix, fmt.Sprint(key)), item, out)
		}
	default:
		if prefix != "" {
			out[prefix] = stringify(value)
		}
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
