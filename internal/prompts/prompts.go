// Package prompts loads YAML prompt specifications for the language model.
package prompts

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Spec is one prompt specification: the system instruction plus generation
// style knobs.
type Spec struct {
	System string `yaml:"system"`
	Style  struct {
		Temperature float32 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"style"`
}

func Load(path string) (Spec, error) {
	var spec Spec
	b, err := os.ReadFile(path)
	if err != nil {
		return spec, err
	}
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return spec, err
	}
	if spec.System == "" {
		return spec, fmt.Errorf("prompt spec %s has no system prompt", path)
	}
	return spec, nil
}

// Temperature returns the configured temperature or the given default.
func (s Spec) Temperature(def float32) float32 {
	if s.Style.Temperature > 0 {
		return s.Style.Temperature
	}
	return def
}

// MaxTokens returns the configured token cap or the given default.
func (s Spec) MaxTokens(def int) int {
	if s.Style.MaxTokens > 0 {
		return s.Style.MaxTokens
	}
	return def
}
