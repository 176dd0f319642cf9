//go:build integration

package itest

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
)

const modulePath = "github.com/forPelevin/roughcut"

// findRepoRoot walks up from the working directory to the go.mod that
// declares this module.
func findRepoRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for range 10 {
		if b, err := os.ReadFile(filepath.Join(wd, "go.mod")); err == nil &&
			bytes.Contains(b, []byte("module "+modulePath)) {
			return wd, nil
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			break
		}
		wd = parent
	}
	return "", errors.New("could not locate go.mod for " + modulePath)
}
