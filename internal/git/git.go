package git

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Status describes how git sees the vaults directory
type Status struct {
	IsRepo          bool
	RegistryTracked bool
	TrackedVaults   []string // Vault files committed to git
	UnignoredVaults []string // Vault files git would offer to add
}

// IsGitRepo reports whether dir is inside a git working tree
func IsGitRepo(dir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	return cmd.Run() == nil
}

// IsTracked reports whether path is tracked by git
func IsTracked(dir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored reports whether path is excluded by any .gitignore
func IsIgnored(dir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = dir
	// check-ignore exits 0 when the path is ignored
	return cmd.Run() == nil
}

// Check inspects the vaults directory. registryFile and vaultFiles are
// names relative to dir. A directory outside any repository yields a
// Status with IsRepo false.
func Check(dir, registryFile string, vaultFiles []string) *Status {
	status := &Status{}
	if _, err := exec.LookPath("git"); err != nil {
		return status
	}
	if !IsGitRepo(dir) {
		return status
	}
	status.IsRepo = true
	status.RegistryTracked = IsTracked(dir, registryFile)

	for _, file := range vaultFiles {
		switch {
		case IsTracked(dir, file):
			status.TrackedVaults = append(status.TrackedVaults, file)
		case !IsIgnored(dir, file):
			status.UnignoredVaults = append(status.UnignoredVaults, file)
		}
	}
	return status
}

// Format renders status for the status command. Returns "" outside a repo.
func Format(status *Status, dir string) string {
	if !status.IsRepo {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit:\n")
	result.WriteString(fmt.Sprintf("   warning: %s is inside a git working tree\n", dir))

	if status.RegistryTracked {
		result.WriteString("   warning: vault registry is tracked (vault names are visible in history)\n")
	}
	for _, file := range status.TrackedVaults {
		result.WriteString(fmt.Sprintf("   warning: %s is tracked (run: git rm --cached %s)\n",
			file, filepath.ToSlash(file)))
	}
	for _, file := range status.UnignoredVaults {
		result.WriteString(fmt.Sprintf("   warning: %s not in .gitignore\n", file))
	}
	if len(status.TrackedVaults) == 0 && len(status.UnignoredVaults) == 0 {
		result.WriteString("   ok: no vault files tracked or addable\n")
	}
	return result.String()
}
