package util

import "os"

// GetEnv returns the value of an environment variable or the fallback
// when unset.
func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
