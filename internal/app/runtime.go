package app

import (
	"os"
	"testing"

	"github.com/spf13/cast"
)

const testModeEnv = "ODYSSEY_TEST_MODE"

// InTestMode reports whether mains should skip opening connections: inside a
// test binary, or when ODYSSEY_TEST_MODE is truthy.
func InTestMode() bool {
	if testing.Testing() {
		return true
	}
	return cast.ToBool(os.Getenv(testModeEnv))
}
