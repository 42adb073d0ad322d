// Package guard switches the process into test mode when imported so that
// entrypoints skip network side effects.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("SIOMS_TEST_MODE") == "" {
			_ = os.Setenv("SIOMS_TEST_MODE", "1")
		}
	})
}
