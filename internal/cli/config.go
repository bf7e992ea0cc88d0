package cli

import (
	"os"
)

// Config holds CLI configuration
type Config struct {
	ServerURL  string
	Output     string
	ConfigFile string
	Verbose    bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:  getEnvOrDefault("TYPERACE_SERVER", "http://localhost:3001"),
		Output:     "text",
		ConfigFile: os.Getenv("TYPERACE_CONFIG"),
		Verbose:    false,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
