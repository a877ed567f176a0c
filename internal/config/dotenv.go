package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotEnv reads dotenv files from the working directory for the current
// APP_ENV and returns the files it read
func LoadDotEnv() ([]string, error) {
	return loadDotEnvFrom(".", os.Getenv("APP_ENV"))
}

// loadDotEnvFrom reads .env.<appEnv>, .env.local and .env from dir, in that
// order. godotenv never overrides a variable that is already set, so the
// process environment wins, then the first file that defines a key.
func loadDotEnvFrom(dir, appEnv string) ([]string, error) {
	names := []string{".env.local", ".env"}
	if appEnv != "" {
		names = append([]string{".env." + appEnv}, names...)
	}

	var found []string
	for _, name := range names {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			found = append(found, path)
		}
	}
	if len(found) == 0 {
		return nil, nil
	}
	if err := godotenv.Load(found...); err != nil {
		return found, fmt.Errorf("dotenv: %w", err)
	}
	return found, nil
}
