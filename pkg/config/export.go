package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AsMap returns the configuration as a nested map keyed by koanf paths.
// Durations are rendered as strings and secrets are redacted.
func (c *Config) AsMap() (map[string]any, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(c, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to flatten configuration: %w", err)
	}
	return presentable(k.Raw()), nil
}

func presentable(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for key, value := range m {
		switch v := value.(type) {
		case map[string]any:
			out[key] = presentable(v)
		case time.Duration:
			out[key] = v.String()
		case SensitiveString:
			out[key] = v.String()
		default:
			out[key] = v
		}
	}
	return out
}
