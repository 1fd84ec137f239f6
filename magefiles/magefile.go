//go:build mage

// Package main contains Mage build targets for ieee-docgen developer tooling.
package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories the CLI and server expect.
var projectDirs = []string{
	"data",
	"output",
}

// Init creates the data and output directories.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "ieee-docgen"
	cmdPkg  = "./cmd/ieee-docgen"
)

func binPath() string { return filepath.Join(binDir, binName) }

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		version = "dev"
	}
	ldflags := "-X main.version=" + version
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", binPath(), cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", binPath())
	return nil
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Sample builds the CLI and renders the sample paper in every format
// into output/.
func Sample() error {
	mg.Deps(Init, Build)
	req := filepath.Join("output", "sample.json")
	if err := os.WriteFile(req, []byte(sampleRequest), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", req, err)
	}
	for _, format := range []string{"docx", "pdf", "html"} {
		if err := sh.RunV(binPath(), "generate", "--format", format, "--out", "output", req); err != nil {
			return err
		}
	}
	return nil
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}

// Stats prints non-blank Go lines per package, split into production
// and test code, followed by the totals.
func Stats() error {
	counts, err := countGoLines(".")
	if err != nil {
		return err
	}
	pkgs := make([]string, 0, len(counts))
	for pkg := range counts {
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PACKAGE\tPROD\tTEST")
	var prod, test int
	for _, pkg := range pkgs {
		c := counts[pkg]
		fmt.Fprintf(w, "%s\t%d\t%d\n", pkg, c.prod, c.test)
		prod += c.prod
		test += c.test
	}
	fmt.Fprintf(w, "total\t%d\t%d\n", prod, test)
	return w.Flush()
}

type lineCount struct{ prod, test int }

// countGoLines counts non-blank lines of Go files under root, keyed by
// package directory. Directories starting with "_" or "." are skipped,
// as the go tool does.
func countGoLines(root string) (map[string]lineCount, error) {
	counts := map[string]lineCount{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(name) != ".go" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		n := 0
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) != "" {
				n++
			}
		}
		dir := filepath.ToSlash(filepath.Dir(path))
		c := counts[dir]
		if strings.HasSuffix(name, "_test.go") {
			c.test += n
		} else {
			c.prod += n
		}
		counts[dir] = c
		return nil
	})
	return counts, err
}
