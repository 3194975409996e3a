//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// Ingest indexes the YAML document sets under data/docs into the SQLite
// full-text index, building the CLI first if needed.
func Ingest() error {
	mg.Deps(Build)
	cmd := exec.Command(filepath.Join(binDir, binName), "docs", "ingest")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docs ingest: %w", err)
	}
	return nil
}
