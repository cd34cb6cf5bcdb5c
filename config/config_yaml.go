package config
// Parse functionality for YAML structures.

import (
  "fmt"

  "gopkg.in/yaml.v3"
)

// Used internally. Parses YAML source into intermediate structures.
func importYaml(buffer []byte) (config *Config, err error) {
  yamlJob := JsonJob{}
  err = yaml.Unmarshal(buffer, &yamlJob)
  if err != nil { return nil, fmt.Errorf("Configuration: %v", err) }

  config, err = processConfigJob(&yamlJob)
  return
}
