// Package config loads the flat Options struct from CLI flags, environment
// variables and a TOML file, and reloads the runtime section on change.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smazurov/mxcamera/internal/logging"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "MXCAMERA_"

// LoadConfig fills opts (a pointer to a flat struct) with precedence
// CLI flag > environment > TOML file. Fields carry `toml:"section.key"` and
// `env:"KEY"` tags; the TOML path is read from a string field named Config.
// Flags explicitly set on cmd are never overwritten. A missing file is not
// an error.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changed := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changed[f.Name] = true
			}
		})
	}

	var configPath string
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String {
		configPath = f.String()
	}

	tree, err := readTOML(configPath)
	if err != nil {
		return err
	}

	for i := range v.NumField() {
		field := v.Field(i)
		sf := t.Field(i)
		flag := sf.Tag.Get("name")
		if flag == "" {
			flag = fieldNameToFlag(sf.Name)
		}
		if changed[flag] {
			continue
		}

		if path := sf.Tag.Get("toml"); path != "" && tree != nil {
			if value := getNestedValue(tree, path); value != nil {
				if err := setFieldValue(field, value); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
		}
		if key := sf.Tag.Get("env"); key != "" {
			if raw, ok := os.LookupEnv(EnvPrefix + key); ok && raw != "" {
				if err := setFieldValueFromString(field, raw); err != nil {
					return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
				}
			}
		}
	}
	return nil
}

// readTOML returns nil without error when path is empty or missing.
func readTOML(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return tree, nil
}

// fieldNameToFlag converts a struct field name to the kebab-case flag name
// humacli derives. Acronyms stay together.
// Example: "LoggingLevel" -> "logging-level", "TCPPort" -> "tcp-port".
func fieldNameToFlag(fieldName string) string {
	runes := []rune(fieldName)
	var result []rune
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (unicode.IsUpper(runes[i-1]) && nextLower) {
				result = append(result, '-')
			}
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue walks a decoded TOML tree along a dotted path.
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current[parts[len(parts)-1]]
}

// setFieldValue assigns a decoded TOML value. go-toml decodes integers as
// int64 and floats as float64.
func setFieldValue(field reflect.Value, value any) error {
	if !field.CanSet() {
		return nil
	}
	mismatch := fmt.Errorf("cannot use %T for %s", value, field.Kind())

	switch field.Kind() {
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			return mismatch
		}
		field.SetString(s)
	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return mismatch
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		switch n := value.(type) {
		case int64:
			field.SetInt(n)
		case int:
			field.SetInt(int64(n))
		default:
			return mismatch
		}
	case reflect.Float64:
		switch n := value.(type) {
		case float64:
			field.SetFloat(n)
		case int64:
			field.SetFloat(float64(n))
		default:
			return mismatch
		}
	case reflect.Slice:
		arr, ok := value.([]any)
		if !ok || field.Type().Elem().Kind() != reflect.String {
			return mismatch
		}
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		field.Set(reflect.ValueOf(out))
	}
	return nil
}

// setFieldValueFromString parses an environment value for field.
func setFieldValueFromString(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}
	return nil
}

// Runtime is the part of the config file applied without a restart.
// Nil toggles were absent from the file and keep their current value.
type Runtime struct {
	DisplayEnabled *bool
	TCPEnabled     *bool
	Logging        logging.Config
}

// LoadRuntime reads the [runtime] and [logging] sections of path.
func LoadRuntime(path string) (Runtime, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Runtime{}, err
	}
	var raw struct {
		Runtime struct {
			DisplayEnabled *bool `toml:"display_enabled"`
			TCPEnabled     *bool `toml:"tcp_enabled"`
		} `toml:"runtime"`
		Logging map[string]any `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Runtime{}, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return Runtime{
		DisplayEnabled: raw.Runtime.DisplayEnabled,
		TCPEnabled:     raw.Runtime.TCPEnabled,
		Logging:        loggingFromTable(raw.Logging),
	}, nil
}

// loggingFromTable splits a [logging] table into the global level, the
// format and per-module levels. Non-string values are ignored.
func loggingFromTable(table map[string]any) logging.Config {
	cfg := logging.Config{Level: "info", Format: "text", Modules: make(map[string]string)}
	for key, value := range table {
		s, ok := value.(string)
		if !ok {
			continue
		}
		switch key {
		case "level":
			cfg.Level = s
		case "format":
			cfg.Format = s
		default:
			cfg.Modules[key] = s
		}
	}
	return cfg
}
