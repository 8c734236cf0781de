package common

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed config.schema.json
var configSchema []byte

// mergeFile overlays the YAML file at path onto c after validating it against the config schema.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewAppError(CodeConfig, fmt.Sprintf("read config %s", path), err)
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return NewAppError(CodeConfig, fmt.Sprintf("parse config %s", path), err)
	}
	if raw == nil {
		return nil // empty file
	}

	schema, err := CompileSchema("config.schema.json", configSchema)
	if err != nil {
		return err
	}
	if err := schema.Validate(raw); err != nil {
		return NewAppError(CodeConfig, fmt.Sprintf("config %s", path), err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return NewAppError(CodeConfig, fmt.Sprintf("decode config %s", path), err)
	}
	return nil
}
