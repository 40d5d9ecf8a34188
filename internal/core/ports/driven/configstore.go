package driven

import "time"

// ConfigReader reads flattened configuration keys such as "model.provider"
// or "pipeline.chunker.chunk_size". The typed getters return the zero value
// when a key is missing or cannot be converted.
type ConfigReader interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64
	GetBool(key string) bool
	// GetDuration accepts Go duration strings ("90s").
	GetDuration(key string) time.Duration
	GetStringSlice(key string) []string
}

// ConfigStore is a writable ConfigReader. Set persists immediately.
type ConfigStore interface {
	ConfigReader
	Set(key string, value any) error
	Save() error
	// Path names where the configuration lives, for display.
	Path() string
}
