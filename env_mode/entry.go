package env_mode

import (
	"os"
	"strings"
	"sync"
)

const ENV_MODE_KEY = "ORCHESTRA_ENV"

type ENV_MODE string

const (
	DevMode  ENV_MODE = "dev"
	ProMode  ENV_MODE = "prod"
	TestMode ENV_MODE = "test"
)

var (
	currentEnv ENV_MODE
	modeOnce   sync.Once
)

// ParseEnv normalises an environment tag. Unknown values fall back to DevMode.
func ParseEnv(env string) ENV_MODE {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "pro":
		return ProMode
	case "test", "testing":
		return TestMode
	default:
		return DevMode
	}
}

// IsProd reports whether env is exactly "prod". The aliases ParseEnv
// accepts only select config overlays.
func IsProd(env string) bool {
	return env == string(ProMode)
}

// Mode returns the process environment read once from ORCHESTRA_ENV.
func Mode() ENV_MODE {
	modeOnce.Do(func() {
		currentEnv = ParseEnv(os.Getenv(ENV_MODE_KEY))
	})
	return currentEnv
}

// SetMode overrides the process environment. Intended for startup and tests.
func SetMode(mode ENV_MODE) {
	modeOnce.Do(func() {})
	os.Setenv(ENV_MODE_KEY, string(mode))
	currentEnv = mode
}
