// Package config loads YAML configuration files into typed structs.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Validator is implemented by config structs that check themselves once
// loaded.
type Validator interface {
	Validate() error
}

// Load decodes filename into target and validates the result. Fields the
// file leaves out keep whatever target already holds, so callers pass in
// a struct of defaults. Unknown keys are rejected so typos surface.
//
// Values may reference the environment as $VAR, ${VAR} or
// ${VAR:-fallback}.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read config %s: %w", filename, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(Expand(data)))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", filename, err)
	}
	return validate(target)
}

// LoadOptional is Load for a file that need not exist. A missing file
// leaves target untouched, but it is still validated.
func LoadOptional[T any](filename string, target *T) error {
	if filename == "" {
		return validate(target)
	}
	if _, err := os.Stat(filename); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return validate(target)
		}
		return fmt.Errorf("stat config %s: %w", filename, err)
	}
	return Load(filename, target)
}

// Expand substitutes environment references in data. Unset variables
// without a fallback become empty.
func Expand(data []byte) []byte {
	return []byte(os.Expand(string(data), func(ref string) string {
		name, fallback, hasFallback := strings.Cut(ref, ":-")
		if v, ok := os.LookupEnv(name); ok && (v != "" || !hasFallback) {
			return v
		}
		return fallback
	}))
}

func validate[T any](target *T) error {
	v, ok := any(target).(Validator)
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
