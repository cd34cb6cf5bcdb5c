/*
Package config translates correction job configurations from XML, JSON or YAML structures into a preprocessed map
structure for quick access.

Light Corrector is released under the BSD 2-clause license. See LICENSE in the project's root folder for more details.
*/
package config

import (
  "bytes"
  "errors"
  "io"
  "os"
  "path/filepath"
  "runtime"
  "strconv"
  "strings"

  "github.com/InfinityTools/go-logging"
  "github.com/InfinityTools/lightcorrect/correct"
  "github.com/InfinityTools/lightcorrect/video"
)


// Available configuration section names
const (
  SECTION_CORRECTION  = "correction"
  SECTION_VIDEO       = "video"
  SECTION_OUTPUT      = "output"
  SECTION_INPUT       = "input"
  SECTION_FILTERS     = "filters"
)

// Available configuration key names
const (
  KEY_CLIP_LIMIT      = "clip_limit"
  KEY_TILES           = "tiles"
  KEY_WB_STRENGTH     = "white_balance_strength"
  KEY_LOSSLESS        = "lossless"
  KEY_QUALITY         = "quality"
  KEY_STRICT          = "strict"
  KEY_THREADED        = "threaded"
  KEY_BATCH_SIZE      = "batch_size"
  KEY_OUTPUT_PATH     = "path"
  KEY_OUTPUT_DIR      = "dir"
  KEY_PREVIEW         = "preview"
  KEY_REPORT          = "report"
  KEY_INPUT_FILES     = "files"
)

// Default values of optional settings
const (
  DefaultClipLimit  = correct.DefaultClipLimit
  DefaultTilesX     = correct.DefaultTilesX
  DefaultTilesY     = correct.DefaultTilesY
  DefaultWBStrength = correct.DefaultWhiteBalanceStrength
  DefaultLossless   = true
  DefaultQuality    = video.DefaultQuality
  DefaultStrict     = false
  DefaultThreaded   = false
)

// ConfigMap maps key => value associations.
type ConfigMap map[string]Variant

// Config maps section => key => value.
type Config map[string]ConfigMap


// DefaultBatchSize returns the number of video frames corrected concurrently in threaded mode if not specified otherwise.
func DefaultBatchSize() int {
  return runtime.NumCPU()
}


// LoadConfig reads the configuration from the file at the given path.
func LoadConfig(path string) (*Config, error) {
  f, err := os.Open(path)
  if err != nil { return nil, err }
  defer f.Close()
  return ImportConfig(f)
}


// ImportConfig constructs a Config object from configuration data found in the source wrapped by the Reader object.
//
// The format is detected by the first non-whitespace character: "<" for XML, "{" for JSON. Anything else is parsed
// as YAML.
func ImportConfig(r io.Reader) (config *Config, err error) {
  logging.Logln("Loading configuration data")
  buffer, err := io.ReadAll(r)
  if err != nil { return }

  trimmed := bytes.TrimLeft(buffer, "\t\n\v\f\r \ufeff")
  if len(trimmed) == 0 { err = errors.New("Configuration: No data found"); return }

  // parsing source into intermediate structures
  switch trimmed[0] {
    case '<':
      config, err = importXml(trimmed)
    case '{':
      config, err = importJson(trimmed)
    default:
      config, err = importYaml(trimmed)
  }
  if err != nil { return }

  logging.Logln("Finished loading configuration data")
  return
}


// GetConfigValueBool returns the boolean value assigned to the specified section => key location. ok returns whether
// the value is available.
func (cfg *Config) GetConfigValueBool(section, key string) (retVal bool, ok bool) {
  value, ok := (*cfg)[section][key].(VarBool)
  if !ok { return }
  retVal = value.ToBool()
  return
}

// GetConfigValueInt returns the numeric value assigned to the specified section => key location. ok returns whether
// the value is available.
func (cfg *Config) GetConfigValueInt(section, key string) (retVal int64, ok bool) {
  value, ok := (*cfg)[section][key].(VarInt)
  if !ok { return }
  retVal = value.ToInt()
  return
}

// GetConfigValueFloat returns the floating point value assigned to the specified section => key location. ok returns
// whether the value is available.
func (cfg *Config) GetConfigValueFloat(section, key string) (retVal float64, ok bool) {
  value, ok := (*cfg)[section][key].(VarFloat)
  if !ok { return }
  retVal = value.ToFloat()
  return
}

// GetConfigValueText returns the string value assigned to the specified section => key location. ok returns whether
// the value is available.
func (cfg *Config) GetConfigValueText(section, key string) (retVal string, ok bool) {
  value, ok := (*cfg)[section][key].(Variant)
  if !ok { return }
  retVal = value.ToString()
  return
}

// GetConfigValueIntSeq returns the numeric array assigned to the specified section => key location. ok returns whether
// the value is available.
func (cfg *Config) GetConfigValueIntSeq(section, key string) (retVal []int64, ok bool) {
  value, ok := (*cfg)[section][key].(VarIntArray)
  if !ok { return }
  retVal = value.ToIntArray()
  return
}

// GetConfigValueTextSeq returns the array of strings assigned to the specified section => key location. ok returns
// whether the value is available.
func (cfg *Config) GetConfigValueTextSeq(section, key string) (retVal []string, ok bool) {
  value, ok := (*cfg)[section][key].(VarTextArray)
  if !ok { return }
  retVal = value.ToTextArray()
  return
}

// GetConfigFilterLength returns the number of available filter definitions.
func (cfg *Config) GetConfigFilterLength() int {
  return len((*cfg)[SECTION_FILTERS])
}

// GetConfigFilterName returns the name of the filter at the specified index. ok returns whether the filter is available.
func (cfg *Config) GetConfigFilterName(index int) (retVal string, ok bool) {
  var option VarFilterMap
  if option, ok = (*cfg)[SECTION_FILTERS][strconv.Itoa(index)].(VarFilterMap); ok {
    retVal = option.GetName()
  }
  return
}

// GetConfigFilterOptions returns the options of the specified filter as multi-array. First item of each entry contains
// key, second item contains value. ok returns whether the filter is available.
func (cfg *Config) GetConfigFilterOptions(index int) (retVal [][]string, ok bool) {
  var filter VarFilterMap
  if filter, ok = (*cfg)[SECTION_FILTERS][strconv.Itoa(index)].(VarFilterMap); ok {
    retVal = filter.GetOptions()
  } else {
    retVal = make([][]string, 0)
  }
  return
}

// GetConfigFilterDefinitions returns all filter options as a list of definitions of the form "name:key=value".
func (cfg *Config) GetConfigFilterDefinitions() []string {
  retVal := make([]string, 0)
  for idx := 0; idx < cfg.GetConfigFilterLength(); idx++ {
    name, ok := cfg.GetConfigFilterName(idx)
    if !ok { continue }
    options, _ := cfg.GetConfigFilterOptions(idx)
    for _, option := range options {
      retVal = append(retVal, name + ":" + option[0] + "=" + option[1])
    }
  }
  return retVal
}


// Used internally. Attempts to convert the content of s into a boolean value. Failing that the function will return
// the specified default value. Both numeric (decimal/hexadecimal) and true/false string values are detected.
func tryParseBool(s string, defValue bool) bool {
  s = strings.ToLower(strings.TrimSpace(s))
  // try true/false first
  if s == "true" || s == "yes" {
    return true
  } else if s == "false" || s == "no" {
    return false
  }
  // try numeric value second
  def := 0
  if defValue { def = 1 }
  return (tryParseInt(s, def) != 0)
}

// Used internally. Attempts to convert the content of s into a signed numeric value. Failing that the function will
// return the specified default value. Both decimal and hexadecimal (with prefix "0x") are detected.
func tryParseInt(s string, defValue int) int64 {
  s = strings.ToLower(strings.TrimSpace(s))

  var value int64
  var err error
  if len(s) > 2 && s[:2] == "0x" {
    // hex value?
    value, err = strconv.ParseInt(s[2:], 16, 32)
  } else {
    // dec value?
    value, err = strconv.ParseInt(s, 10, 32)
  }
  if err != nil { value = int64(defValue) }

  return value
}

// Used internally. Attempts to convert the content of s into a floating point value. Failing that the function will
// return the specified default value.
func tryParseFloat(s string, defValue float64) float64 {
  s = strings.ToLower(strings.TrimSpace(s))

  var value float64
  var err error
  value, err = strconv.ParseFloat(s, 64)
  if err != nil { value = defValue }

  return value
}

// Used internally. Attempts to convert the content of s into a sequence of signed numeric values. Invalid elements
// will be replaced by the provided default value. The returned array may contain zero, one or more items.
func tryParseIntSeq(s string, defValue int) []int64 {
  if len(strings.TrimSpace(s)) == 0 { return make([]int64, 0) }
  items := strings.Split(s, ",")
  retVal := make([]int64, len(items))
  for idx, val := range items {
    retVal[idx] = tryParseInt(val, defValue)
  }

  return retVal
}

// Used internally. Normalizes path separators and removes trailing separators.
func fixPath(s string) string {
  s = filepath.ToSlash(strings.TrimSpace(s))
  for len(s) > 1 && s[len(s)-1:] == "/" { s = s[:len(s)-1] }
  return s
}
