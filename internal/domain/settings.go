package domain

// Settings holds free-form action parameters. Values come from JSON or YAML,
// so numbers may arrive as any numeric type.
type Settings map[string]any

func (s Settings) Clone() Settings {
	if s == nil {
		return nil
	}
	c := make(Settings, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

func (s Settings) String(key, def string) string {
	if v, ok := s[key].(string); ok && v != "" {
		return v
	}
	return def
}

func (s Settings) Float(key string, def float64) float64 {
	switch v := s[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	}
	return def
}

func (s Settings) Has(key string) bool {
	_, ok := s[key]
	return ok
}

func (s Settings) Strings(key string) []string {
	switch v := s[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}
