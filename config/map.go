package config

import "gopkg.in/yaml.v3"

// Map is the resolved configuration as a plain mapping, stored alongside
// checkpoints.
func (p Params) Map() (map[string]any, error) {
	raw, err := yaml.Marshal(p)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
