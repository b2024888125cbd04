package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults holds the per-subject-type validation defaults. Subject
// types absent from the map fall back to requiring validation.
type Defaults struct {
	BySubject map[string]bool `yaml:"subjects"`
	Fallback  bool            `yaml:"fallback"`
}

// BuiltinDefaults mirrors the shipped policy file: plain content types
// skip validation, anything touching access control goes through the
// validator.
func BuiltinDefaults() Defaults {
	return Defaults{
		BySubject: map[string]bool{
			"entity":           false,
			"project":          false,
			"template":         false,
			"message":          false,
			"workspace":        true,
			"workspace_member": true,
			"api_key":          true,
		},
		Fallback: true,
	}
}

// LoadDefaults reads a YAML policy file. An empty path returns the
// builtins.
func LoadDefaults(path string) (Defaults, error) {
	if path == "" {
		return BuiltinDefaults(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Defaults{}, fmt.Errorf("read policy defaults: %w", err)
	}
	d := Defaults{Fallback: true}
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Defaults{}, fmt.Errorf("parse policy defaults: %w", err)
	}
	if d.BySubject == nil {
		d.BySubject = map[string]bool{}
	}
	return d, nil
}

func (d Defaults) For(subjectType string) bool {
	if required, ok := d.BySubject[subjectType]; ok {
		return required
	}
	return d.Fallback
}
