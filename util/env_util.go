package util

import (
	"os"

	_ "github.com/joho/godotenv/autoload"
)

func EnvOrDefault(key string, fallback string) string {
	env := os.Getenv(key)
	if len(env) == 0 {
		return fallback
	}

	return env
}
