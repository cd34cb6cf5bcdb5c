package config

import (
  "path/filepath"
  "strings"
)

// Suffix appended to the base name of corrected output files.
const OutputSuffix = "_corrected"

// AssembleOutputPath assembles the output file path for the given input file. The file name is built from the input
// file name with OutputSuffix inserted before the file extension. If dir is empty the output file is placed next to
// the input file.
func AssembleOutputPath(input, dir string) string {
  base := filepath.Base(input)
  ext := filepath.Ext(base)
  name := strings.TrimSuffix(base, ext) + OutputSuffix + ext
  if len(dir) == 0 { dir = filepath.Dir(input) }
  return filepath.Join(dir, name)
}
