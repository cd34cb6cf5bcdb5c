/*
Package lightcorrect provides definitions that are shared by the packages and tools of Light Corrector.

Light Corrector is released under the BSD 2-clause license. See LICENSE in the project's root folder for more details.
*/
package lightcorrect

import (
  "fmt"
  "runtime"
)

// Version number of the whole lightcorrect package.
const (
  VERSION_MAJOR = 0
  VERSION_MINOR = 1
  VERSION_PATCH = 0
)

// VersionString returns the current version in the form "major.minor.patch".
func VersionString() string {
  return fmt.Sprintf("%d.%d.%d", VERSION_MAJOR, VERSION_MINOR, VERSION_PATCH)
}

// PrintVersion prints the current version of the lightcorrect package to standard output,
// prefixed by the specified tool name.
func PrintVersion(toolName string) {
  fmt.Printf("%s version %s (binary: %s, %s)\n", toolName, VersionString(), runtime.GOOS, runtime.GOARCH)
}
