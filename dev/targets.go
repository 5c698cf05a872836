//go:build targ

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/akedrou/textdiff"
	"github.com/toejough/go-reorder"
	"github.com/toejough/targ"
	"github.com/toejough/targ/file"
	"github.com/toejough/targ/sh"
)

// Build builds the local impstub fixture CLI.
func Build() error {
	fmt.Println("Building impstub...")

	if err := os.MkdirAll("bin", 0o755); err != nil {
		return fmt.Errorf("failed to create bin directory: %w", err)
	}

	return sh.Run("go", "build", "-o", "bin/impstub", "./cmd/impstub")
}

// Check runs all checks & fixes on the code, in order of correctness.
func Check() error {
	fmt.Println("Checking...")

	return targ.Deps(
		Tidy,             // clean up the module dependencies
		FixImports,       // fix imports to remove unused ones
		CheckCoverage,    // does our code work?
		ValidateFixtures, // do the shipped fixtures still load?
		ReorderDecls,     // linter will yell about declaration order if not correct
		Lint,
	)
}

// CheckCoverage checks that function coverage meets the minimum threshold.
func CheckCoverage() error {
	fmt.Println("Checking coverage...")

	if err := targ.Deps(Test); err != nil {
		return err
	}

	out, err := output("go", "tool", "cover", "-func=coverage.out")
	if err != nil {
		return err
	}

	percentPattern := regexp.MustCompile(`\d+\.\d`)
	linesAndCoverage := []lineAndCoverage{}

	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "main.go") || strings.Contains(line, "total:") {
			continue
		}

		percent, err := strconv.ParseFloat(percentPattern.FindString(line), 64)
		if err != nil {
			return err
		}

		linesAndCoverage = append(linesAndCoverage, lineAndCoverage{line, percent})
	}

	if len(linesAndCoverage) == 0 {
		return errors.New("no coverage data found")
	}

	slices.SortStableFunc(linesAndCoverage, func(a, b lineAndCoverage) int {
		switch {
		case a.coverage < b.coverage:
			return -1
		case a.coverage > b.coverage:
			return 1
		default:
			return 0
		}
	})

	for _, lc := range linesAndCoverage {
		fmt.Println(lc.line)
	}

	lc := linesAndCoverage[0]

	coverage := 80.0
	if lc.coverage < coverage {
		return fmt.Errorf("function coverage was less than the limit of %.1f:\n  %s", coverage, lc.line)
	}

	return nil
}

// CheckForFail runs all checks on the code for determining whether any fail.
func CheckForFail() error {
	fmt.Println("Checking...")

	// Checks from fastest to slowest
	return targ.Deps(
		ReorderDeclsCheck,
		LintForFail,
		TestForFail,
		ValidateFixtures,
		CheckCoverage,
	)
}

// Clean cleans up the dev env.
func Clean() {
	fmt.Println("Cleaning...")
	os.Remove("coverage.out")
	os.RemoveAll("bin")
}

// FixImports fixes all imports in the codebase.
func FixImports() error {
	fmt.Println("Fixing imports...")
	return sh.Run("goimports", "-w", ".")
}

// Lint lints the codebase.
func Lint() error {
	fmt.Println("Linting...")
	return sh.Run("golangci-lint", "run", "-c", "dev/golangci.toml")
}

// LintForFail lints the codebase purely to find out whether anything fails.
func LintForFail() error {
	fmt.Println("Linting to check for overall pass/fail...")

	return sh.Run(
		"golangci-lint", "run",
		"-c", "dev/golangci.toml",
		"--fix=false",
		"--max-issues-per-linter=1",
		"--max-same-issues=1",
		"--allow-parallel-runners",
	)
}

// Mutate runs the mutation tests.
func Mutate() error {
	fmt.Println("Running mutation tests...")

	if err := targ.Deps(TestForFail); err != nil {
		return err
	}

	return sh.Run(
		"go",
		"test",
		"-timeout=6000s",
		"-tags=mutation",
		"-ooze.v",
		"./dev/...",
		"-run=TestMutation",
	)
}

// ReorderDecls reorders declarations in Go files per conventions.
func ReorderDecls() error {
	fmt.Println("Reordering declarations...")

	files, err := sourceFiles()
	if err != nil {
		return err
	}

	reorderedCount := 0

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}

		reordered, err := reorder.Source(string(content))
		if err != nil {
			fmt.Printf("Warning: failed to reorder %s: %v\n", file, err)

			continue
		}

		if string(content) != reordered {
			err = os.WriteFile(file, []byte(reordered), 0o600)
			if err != nil {
				return fmt.Errorf("failed to write %s: %w", file, err)
			}

			fmt.Printf("  Reordered: %s\n", file)
			reorderedCount++
		}
	}

	fmt.Printf("Reordered %d file(s).\n", reorderedCount)

	return nil
}

// ReorderDeclsCheck checks which files need reordering without modifying them.
func ReorderDeclsCheck() error {
	fmt.Println("Checking declaration order...")

	files, err := sourceFiles()
	if err != nil {
		return err
	}

	outOfOrderFiles := 0

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}

		reordered, err := reorder.Source(string(content))
		if err != nil {
			fmt.Printf("Warning: failed to reorder %s: %v\n", file, err)

			continue
		}

		if string(content) == reordered {
			continue
		}

		outOfOrderFiles++

		diff := textdiff.Unified(file+" (current)", file+" (reordered)", string(content), reordered)
		fmt.Printf("\n%s\n", diff)
	}

	if outOfOrderFiles > 0 {
		fmt.Printf("\n%d of %d file(s) need reordering. Run 'targ reorder-decls' to fix.\n", outOfOrderFiles, len(files))

		return fmt.Errorf("%d file(s) need reordering", outOfOrderFiles)
	}

	fmt.Printf("All files are correctly ordered (%d files processed).\n", len(files))

	return nil
}

// Test runs the unit tests.
func Test() error {
	fmt.Println("Running unit tests...")

	// Use -count=1 to disable caching so coverage is regenerated
	err := sh.Run(
		"go",
		"test",
		"-timeout=2m",
		"-race",
		"-count=1",
		"-coverprofile=coverage.out",
		"-coverpkg=./...",
		"-cover",
		"./...",
	)
	if err != nil {
		return err
	}

	data, err := os.ReadFile("coverage.out")
	if err != nil {
		return fmt.Errorf("failed to read coverage.out: %w", err)
	}

	var filtered []string

	for _, line := range strings.Split(string(data), "\n") {
		if !strings.Contains(line, "/main.go:") {
			filtered = append(filtered, line)
		}
	}

	err = os.WriteFile("coverage.out", []byte(strings.Join(filtered, "\n")), 0o600)
	if err != nil {
		return fmt.Errorf("failed to write coverage.out: %w", err)
	}

	return nil
}

// TestForFail runs the unit tests purely to find out whether any fail.
func TestForFail() error {
	fmt.Println("Running unit tests for overall pass/fail...")

	return sh.Run(
		"go",
		"test",
		"-timeout=30s",
		"./...",
		"-failfast",
	)
}

// Tidy tidies up go.mod.
func Tidy() error {
	fmt.Println("Tidying go.mod...")
	return sh.Run("go", "mod", "tidy")
}

// ValidateFixtures runs the freshly built CLI over every fixture under testdata.
func ValidateFixtures() error {
	fmt.Println("Validating fixtures...")

	if err := targ.Deps(Build); err != nil {
		return err
	}

	fixtures, err := filepath.Glob("fixture/testdata/valid_*.yaml")
	if err != nil {
		return fmt.Errorf("failed to find fixtures: %w", err)
	}

	if len(fixtures) == 0 {
		return nil
	}

	return sh.Run("bin/impstub", append([]string{"validate", "--quiet"}, fixtures...)...)
}

// Watch re-runs Check whenever files change.
func Watch(ctx context.Context) error {
	fmt.Println("Watching...")

	return file.Watch(ctx, []string{"**/*.go", "**/*.yaml", "**/*.json", "**/*.toml"}, file.WatchOptions{}, func(changes file.ChangeSet) error {
		if !hasRelevantChanges(changes) {
			return nil
		}

		fmt.Println("Change detected...")

		targ.ResetDeps() // Clear execution cache so targets run again

		err := Check()
		if err != nil {
			fmt.Println("continuing to watch after check failure (see errors above)")
		} else {
			fmt.Println("continuing to watch after all checks passed!")
		}

		return nil // Don't stop watching on error
	})
}

type lineAndCoverage struct {
	line     string
	coverage float64
}

// hasRelevantChanges returns true if the changeset contains files we care about.
// Filters out build artifacts that Check() itself creates.
func hasRelevantChanges(changes file.ChangeSet) bool {
	allFiles := append(append(changes.Added, changes.Removed...), changes.Modified...)

	for _, f := range allFiles {
		if strings.HasSuffix(f, "coverage.out") || strings.HasPrefix(f, "bin/") {
			continue
		}

		return true
	}

	return false
}

func isGeneratedFile(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	buf := make([]byte, 200)

	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	content := string(buf[:n])

	return strings.Contains(content, "Code generated") || strings.Contains(content, "DO NOT EDIT"), nil
}

// output runs a command and captures stdout only (stderr goes to os.Stderr).
func output(command string, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd := exec.Command(command, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = buf
	cmd.Stderr = os.Stderr
	err := cmd.Run()

	return strings.TrimSuffix(buf.String(), "\n"), err
}

// sourceFiles lists the hand-written Go files. Underscore-prefixed, hidden and
// vendored directories are skipped, as are generated files.
func sourceFiles() ([]string, error) {
	files := []string{}

	err := filepath.WalkDir(".", func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("unable to walk %s: %w", path, err)
		}

		name := entry.Name()

		if entry.IsDir() {
			if path != "." && (name == "vendor" || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}

			return nil
		}

		if filepath.Ext(name) != ".go" {
			return nil
		}

		isGenerated, err := isGeneratedFile(path)
		if err != nil {
			return fmt.Errorf("failed to check if %s is generated: %w", path, err)
		}

		if !isGenerated {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find Go files: %w", err)
	}

	return files, nil
}
