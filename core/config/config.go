package config

import (
	"fmt"
	"os"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	loadEnvOnce sync.Once
	cache       sync.Map // reflect.Type -> any
)

// loadDotEnv loads a .env file from the working directory if one is present.
// A missing file is not an error; any other read failure is ignored since
// process environment variables remain authoritative.
func loadDotEnv() {
	loadEnvOnce.Do(func() {
		if _, err := os.Stat(".env"); err == nil {
			_ = godotenv.Load()
		}
	})
}

// Load parses environment variables into cfg using caarlos0/env struct tags
// (env, envDefault, envSeparator). The first successful Load for a given
// struct type is cached; subsequent calls for the same type return the
// cached value without touching the environment again.
func Load[T any](cfg *T) error {
	loadDotEnv()

	t := reflect.TypeOf(*cfg)
	if cached, ok := cache.Load(t); ok {
		*cfg = cached.(T)
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", t.Name(), err)
	}

	cache.Store(t, *cfg)
	return nil
}

// MustLoad calls Load and panics on failure. Intended for use at process
// startup where a missing or malformed required variable should halt boot.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}
