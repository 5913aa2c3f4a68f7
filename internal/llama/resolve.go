package llama

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ExecutableName is the llama.cpp completion tool.
const ExecutableName = "llama-cli"

// DefaultCandidates lists where the executable is looked for, in priority
// order: an explicit override, the directories bundled next to the running
// binary, then conventional install prefixes.
func DefaultCandidates(override string) []string {
	var candidates []string
	if strings.TrimSpace(override) != "" {
		candidates = append(candidates, override)
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(exeDir, ExecutableName),
			filepath.Join(exeDir, "bin", ExecutableName),
			filepath.Join(exeDir, "..", "Resources", ExecutableName),
			filepath.Join(exeDir, "..", "libexec", ExecutableName),
		)
	}

	candidates = append(candidates,
		filepath.Join("/opt/homebrew/bin", ExecutableName),
		filepath.Join("/usr/local/bin", ExecutableName),
		filepath.Join("/usr/bin", ExecutableName),
	)

	if path, err := exec.LookPath(ExecutableName); err == nil {
		candidates = append(candidates, path)
	}
	return candidates
}

// ResolveExecutable returns the first candidate that is an executable file.
func ResolveExecutable(candidates []string) (string, error) {
	for _, candidate := range candidates {
		if isExecutable(candidate) {
			if abs, err := filepath.Abs(candidate); err == nil {
				return abs, nil
			}
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w (checked %s)", ErrExecutableNotFound, strings.Join(candidates, ", "))
}

func isExecutable(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
