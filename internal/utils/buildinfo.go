package utils

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"strings"
)

const (
	unknownVersion     = "unknown"
	develBuildVersion  = "(devel)"
	gitExecutableName  = "git"
	gitDescribeCommand = "describe"
)

// Version is set at link time with -ldflags "-X github.com/tyemirov/excerpt/internal/utils.Version=v1.2.3".
var Version = ""

// GetApplicationVersion reports the linked version, then the module version from
// build info, then git describe output from the enclosing checkout.
func GetApplicationVersion() string {
	if Version != "" {
		return Version
	}
	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if buildInfoAvailable && buildInfo.Main.Version != "" && buildInfo.Main.Version != develBuildVersion {
		return buildInfo.Main.Version
	}

	repositoryDirectory, findError := findGitDirectory(".")
	if findError != nil {
		return unknownVersion
	}
	describeArguments := [][]string{
		{gitDescribeCommand, "--tags", "--exact-match"},
		{gitDescribeCommand, "--tags", "--long", "--dirty"},
	}
	for _, arguments := range describeArguments {
		// #nosec G204
		describe := exec.Command(gitExecutableName, arguments...)
		describe.Dir = repositoryDirectory
		describeOutput, describeError := describe.Output()
		if describeError == nil && len(describeOutput) > 0 {
			return strings.TrimSpace(string(describeOutput))
		}
	}
	return unknownVersion
}

// findGitDirectory walks up from startDirectory to the directory containing .git.
func findGitDirectory(startDirectory string) (string, error) {
	absoluteStartDirectory, absoluteError := filepath.Abs(startDirectory)
	if absoluteError != nil {
		return "", fmt.Errorf("failed to get absolute path for %s: %w", startDirectory, absoluteError)
	}
	for currentDirectory := absoluteStartDirectory; ; {
		fileInformation, statError := os.Stat(filepath.Join(currentDirectory, GitDirectoryName))
		if statError == nil && fileInformation.IsDir() {
			return currentDirectory, nil
		}
		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			return "", fmt.Errorf(".git directory not found in or above %s", absoluteStartDirectory)
		}
		currentDirectory = parentDirectory
	}
}
