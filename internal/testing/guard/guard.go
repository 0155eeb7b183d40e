package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("ORGMANAGE_TEST_MODE") == "" {
			_ = os.Setenv("ORGMANAGE_TEST_MODE", "1")
		}
	})
}
