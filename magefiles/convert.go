//go:build mage

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Convert builds the CLI and converts the given space-separated files into
// output/.
func Convert(files string) error {
	mg.Deps(Build)

	args := []string{"convert", "--out-dir", "output"}
	args = append(args, strings.Fields(files)...)
	if len(args) == 3 {
		return fmt.Errorf("no files given")
	}
	return sh.RunV(filepath.Join(binDir, binName), args...)
}

// CheckKey builds the CLI and verifies the configured provider API key.
func CheckKey() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "check")
}
