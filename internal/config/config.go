package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Version is the leaf release reported by the CLI and the UI footer.
const Version = "0.3.0"

// Config holds all leaf configuration.
type Config struct {
	Artifact ArtifactConfig
	HTTP     HTTPConfig
	Log      LogConfig
	Output   OutputConfig
}

// ArtifactConfig describes where the trained model comes from.
type ArtifactConfig struct {
	Path          string // manifest path
	ORTLibrary    string // ONNX Runtime shared library; empty means next to the model
	Watch         bool
	WatchDebounce time.Duration
	StrictRanges  bool // reject readings outside field bounds at input surfaces
}

// HTTPConfig holds the UI server settings.
type HTTPConfig struct {
	Addr string
}

// LogConfig holds slog settings.
type LogConfig struct {
	Level  string
	Format string // "text" or "json"
}

// OutputConfig holds prediction record destinations.
type OutputConfig struct {
	Mode      string // "none", "stdout", "file", "both"
	File      string
	MaxSize   int64 // bytes before rotation; 0 disables rotation
	Pretty    bool
	Verbosity string // "minimal", "standard", "full"
}

// Load reads an optional .env file and then configuration from environment
// variables with sensible defaults. Variables already set in the environment
// win over .env entries.
func Load() Config {
	_ = godotenv.Load()
	return fromEnv()
}

// LoadFile is Load with an explicit .env path. A missing file is an error.
func LoadFile(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return fromEnv(), nil
}

func fromEnv() Config {
	return Config{
		Artifact: ArtifactConfig{
			Path:          getenv("LEAF_ARTIFACT_PATH", "models/plant_health.yaml"),
			ORTLibrary:    os.Getenv("LEAF_ORT_LIBRARY"),
			Watch:         getenvBool("LEAF_WATCH", true),
			WatchDebounce: getenvDuration("LEAF_WATCH_DEBOUNCE", 250*time.Millisecond),
			StrictRanges:  getenvBool("LEAF_STRICT_RANGES", true),
		},
		HTTP: HTTPConfig{
			Addr: getenv("LEAF_HTTP_ADDR", ":8501"),
		},
		Log: LogConfig{
			Level:  getenv("LEAF_LOG_LEVEL", "info"),
			Format: getenv("LEAF_LOG_FORMAT", "text"),
		},
		Output: OutputConfig{
			Mode:      getenv("LEAF_OUTPUT", "none"),
			File:      getenv("LEAF_OUTPUT_FILE", "predictions.ndjson"),
			MaxSize:   getenvInt64("LEAF_OUTPUT_MAX_SIZE", 0),
			Pretty:    getenvBool("LEAF_OUTPUT_PRETTY", false),
			Verbosity: getenv("LEAF_VERBOSITY", "standard"),
		},
	}
}

// Validate checks enumerated values and required fields.
func (c Config) Validate() error {
	var errs []string
	if c.Artifact.Path == "" {
		errs = append(errs, "LEAF_ARTIFACT_PATH must not be empty")
	} else if _, err := os.Stat(c.Artifact.Path); err != nil {
		errs = append(errs, fmt.Sprintf("model file not found: LEAF_ARTIFACT_PATH %s", c.Artifact.Path))
	}
	if c.Artifact.WatchDebounce < 0 {
		errs = append(errs, "LEAF_WATCH_DEBOUNCE must not be negative")
	}
	if !oneOf(c.Log.Format, "text", "json") {
		errs = append(errs, fmt.Sprintf("LEAF_LOG_FORMAT %q must be text or json", c.Log.Format))
	}
	if !oneOf(c.Log.Level, "debug", "info", "warn", "warning", "error") {
		errs = append(errs, fmt.Sprintf("LEAF_LOG_LEVEL %q is not a level", c.Log.Level))
	}
	if !oneOf(c.Output.Mode, "none", "stdout", "file", "both") {
		errs = append(errs, fmt.Sprintf("LEAF_OUTPUT %q must be none, stdout, file or both", c.Output.Mode))
	}
	if (c.Output.Mode == "file" || c.Output.Mode == "both") && c.Output.File == "" {
		errs = append(errs, "LEAF_OUTPUT_FILE must be set for file output")
	}
	if c.Output.MaxSize < 0 {
		errs = append(errs, "LEAF_OUTPUT_MAX_SIZE must not be negative")
	}
	if !oneOf(c.Output.Verbosity, "minimal", "standard", "full") {
		errs = append(errs, fmt.Sprintf("LEAF_VERBOSITY %q must be minimal, standard or full", c.Output.Verbosity))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	v = strings.ToLower(v)
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
