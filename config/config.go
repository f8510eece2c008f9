// Package config provides centralized configuration for the shelf module.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the process-wide settings governing the adapter and query
// compiler. All of it can be overridden with ATOMICSHELF_* environment
// variables; defaults are chosen so a caller can start using the module
// without configuring anything.
type Config struct {
	DataDir        string // data directory setting; NewOnDisk does not read it and uses the path it is given
	WALEnabled     bool   // whether on-disk/remote adapters set journal_mode=WAL on connect
	DefaultLimit   int    // LIMIT applied to a query when none is specified (0 = none; MaxQueryLimit still applies)
	MaxQueryLimit  int    // hard ceiling on LIMIT, 0 = unlimited
	MaxAnyDepth    int    // maximum nesting depth of any() quantifiers in a single expression
	MaxInArraySize int    // maximum elements accepted by isin()/IN
}

// Cfg is the global configuration instance, loaded once at process start.
var Cfg Config

func init() {
	// Ignored if no .env file is present.
	godotenv.Load()
	Cfg = Load()
}

// Load reads configuration from environment variables with sensible
// defaults, mirroring the teacher's own config.Load layering.
func Load() Config {
	return Config{
		DataDir:        getEnv("ATOMICSHELF_DATA_DIR", "shelfdata"),
		WALEnabled:     getBoolEnv("ATOMICSHELF_WAL", true),
		DefaultLimit:   getIntEnv("ATOMICSHELF_DEFAULT_LIMIT", 100),
		MaxQueryLimit:  getIntEnv("ATOMICSHELF_MAX_QUERY_LIMIT", 1000),
		MaxAnyDepth:    getIntEnv("ATOMICSHELF_MAX_ANY_DEPTH", 4),
		MaxInArraySize: getIntEnv("ATOMICSHELF_MAX_IN_ARRAY", 500),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n >= 0 {
			return n
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
