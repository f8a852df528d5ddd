package testhelpers

import (
	"os"
	"path/filepath"
	"runtime"
)

// LoadFixture reads a file from testhelpers/fixtures regardless of the
// calling package's depth.
func LoadFixture(name string) ([]byte, error) {
	_, self, _, _ := runtime.Caller(0)
	return os.ReadFile(filepath.Join(filepath.Dir(self), "fixtures", name))
}

func MustLoadFixture(name string) []byte {
	b, err := LoadFixture(name)
	if err != nil {
		panic(err)
	}
	return b
}
