package envutil

import (
	"log"
	"os"
	"strconv"
	"time"
)

// GetenvDefault gets the value of an environment variable, or returns the
// specified default value if that variable is not set.
func GetenvDefault(name, defaultValue string) string {
	val, found := os.LookupEnv(name)
	if !found {
		return defaultValue
	}
	return val
}

// GetenvDefaultInt gets an environment variable as an int, or else returns the default
func GetenvDefaultInt(name string, defaultVal int) int {
	val, found := os.LookupEnv(name)
	if !found {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("environment variable %s should be an integer: %v", name, err)
	}
	return intVal
}

// GetenvDefaultDuration gets an environment variable as a time.Duration, or
// else returns the default
func GetenvDefaultDuration(name string, defaultVal time.Duration) time.Duration {
	val, found := os.LookupEnv(name)
	if !found {
		return defaultVal
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		log.Fatalf("environment variable %s should be a duration: %v", name, err)
	}
	return dur
}

// MustGetenv gets the value of an environment variable, or exits if it has no value.
func MustGetenv(name string) string {
	val, found := os.LookupEnv(name)
	if !found {
		log.Fatalf("environment variable %s is required but not set", name)
	}
	return val
}
