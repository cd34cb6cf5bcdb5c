package config
// Parse functionality for JSON structures. The intermediate structures are shared with the YAML parser.

import (
  "encoding/json"
  "fmt"
  "strconv"
  "strings"

  "github.com/InfinityTools/go-logging"
)

// Used internally by json.Unmarshal to store correction settings. Omitted values are nil.
type JsonCorrection struct {
  ClipLimit     *float64      `json:"clip_limit" yaml:"clip_limit"`
  Tiles         []int64       `json:"tiles" yaml:"tiles"`
  WBStrength    *float64      `json:"white_balance_strength" yaml:"white_balance_strength"`
}

// Used internally by json.Unmarshal to store video settings. Omitted values are nil.
type JsonVideo struct {
  Lossless      *bool         `json:"lossless" yaml:"lossless"`
  Quality       *int64        `json:"quality" yaml:"quality"`
  Strict        *bool         `json:"strict" yaml:"strict"`
  Threaded      *bool         `json:"threaded" yaml:"threaded"`
  BatchSize     *int64        `json:"batch_size" yaml:"batch_size"`
}

// Used internally by json.Unmarshal to store output settings.
type JsonOutput struct {
  Path          string        `json:"path" yaml:"path"`
  Dir           string        `json:"dir" yaml:"dir"`
  Preview       string        `json:"preview" yaml:"preview"`
  Report        string        `json:"report" yaml:"report"`
}

// Used internally by json.Unmarshal to store input settings.
type JsonInput struct {
  Files         []string      `json:"files" yaml:"files"`
}

// Used internally by json.Unmarshal to store filter settings.
type JsonFilterOptions struct {
  Key           string        `json:"key" yaml:"key"`
  Value         string        `json:"value" yaml:"value"`
}

// Used internally by json.Unmarshal to store filter options.
type JsonFilter struct {
  Name          string              `json:"name" yaml:"name"`
  Options       []JsonFilterOptions `json:"options" yaml:"options"`
}

// Used internally by json.Unmarshal to store configuration data from JSON or YAML scripts.
type JsonJob struct {
  Correction    JsonCorrection  `json:"correction" yaml:"correction"`
  Video         JsonVideo       `json:"video" yaml:"video"`
  Output        JsonOutput      `json:"output" yaml:"output"`
  Input         JsonInput       `json:"input" yaml:"input"`
  Filters       []JsonFilter    `json:"filters" yaml:"filters"`
}

// Used internally. Parses JSON source into intermediate structures.
func importJson(buffer []byte) (config *Config, err error) {
  jsonJob := JsonJob{}
  err = json.Unmarshal(buffer, &jsonJob)
  if err != nil { return nil, fmt.Errorf("Configuration: %v", err) }

  config, err = processConfigJob(&jsonJob)
  return
}


// Used internally. Converts parsed input into useful data types, taking defaults into account for omitted input.
func processConfigJob(input *JsonJob) (config *Config, err error) {
  cfg := make(Config)
  config = &cfg
  logging.Logln("Processing correction settings")
  err = processConfigJobCorrection(input, config)
  if err != nil { return }
  logging.Logln("Processing video settings")
  err = processConfigJobVideo(input, config)
  if err != nil { return }
  logging.Logln("Processing output settings")
  err = processConfigJobOutput(input, config)
  if err != nil { return }
  logging.Logln("Processing input settings")
  err = processConfigJobInput(input, config)
  if err != nil { return }
  logging.Logln("Processing filter settings")
  err = processConfigJobFilters(input, config)
  return
}

// Used internally. Process "correction" section.
func processConfigJobCorrection(input *JsonJob, config *Config) error {
  (*config)[SECTION_CORRECTION] = make(ConfigMap)

  floatVal := DefaultClipLimit
  if input.Correction.ClipLimit != nil { floatVal = *input.Correction.ClipLimit }
  if floatVal < 0.0 || floatVal > 256.0 { return fmt.Errorf("Correction>ClipLimit not in range [0.0, 256.0]: %v", floatVal) }
  (*config)[SECTION_CORRECTION][KEY_CLIP_LIMIT] = Float{floatVal}

  intSeq := []int64{DefaultTilesX, DefaultTilesY}
  switch len(input.Correction.Tiles) {
    case 0:
    case 1:
      intSeq = []int64{input.Correction.Tiles[0], input.Correction.Tiles[0]}
    case 2:
      intSeq = []int64{input.Correction.Tiles[0], input.Correction.Tiles[1]}
    default:
      return fmt.Errorf("Correction>Tiles: expected one or two values: %v", input.Correction.Tiles)
  }
  for _, n := range intSeq {
    if n < 1 || n > 256 { return fmt.Errorf("Correction>Tiles not in range [1, 256]: %v", intSeq) }
  }
  (*config)[SECTION_CORRECTION][KEY_TILES] = IntArray{intSeq}

  floatVal = DefaultWBStrength
  if input.Correction.WBStrength != nil { floatVal = *input.Correction.WBStrength }
  if floatVal < 0.0 || floatVal > 1.0 { return fmt.Errorf("Correction>WhiteBalanceStrength not in range [0.0, 1.0]: %v", floatVal) }
  (*config)[SECTION_CORRECTION][KEY_WB_STRENGTH] = Float{floatVal}

  return nil
}

// Used internally. Process "video" section.
func processConfigJobVideo(input *JsonJob, config *Config) error {
  (*config)[SECTION_VIDEO] = make(ConfigMap)

  boolVal := DefaultLossless
  if input.Video.Lossless != nil { boolVal = *input.Video.Lossless }
  (*config)[SECTION_VIDEO][KEY_LOSSLESS] = Bool{boolVal}

  intVal := int64(DefaultQuality)
  if input.Video.Quality != nil { intVal = *input.Video.Quality }
  if intVal < 0 || intVal > 100 { return fmt.Errorf("Video>Quality not in range [0, 100]: %d", intVal) }
  (*config)[SECTION_VIDEO][KEY_QUALITY] = Int{intVal}

  boolVal = DefaultStrict
  if input.Video.Strict != nil { boolVal = *input.Video.Strict }
  (*config)[SECTION_VIDEO][KEY_STRICT] = Bool{boolVal}

  boolVal = DefaultThreaded
  if input.Video.Threaded != nil { boolVal = *input.Video.Threaded }
  (*config)[SECTION_VIDEO][KEY_THREADED] = Bool{boolVal}

  intVal = int64(DefaultBatchSize())
  if input.Video.BatchSize != nil { intVal = *input.Video.BatchSize }
  if intVal < 1 || intVal > 1024 { return fmt.Errorf("Video>BatchSize not in range [1, 1024]: %d", intVal) }
  (*config)[SECTION_VIDEO][KEY_BATCH_SIZE] = Int{intVal}

  return nil
}

// Used internally. Process "output" section.
func processConfigJobOutput(input *JsonJob, config *Config) error {
  (*config)[SECTION_OUTPUT] = make(ConfigMap)
  (*config)[SECTION_OUTPUT][KEY_OUTPUT_PATH] = Text{fixPath(input.Output.Path)}
  (*config)[SECTION_OUTPUT][KEY_OUTPUT_DIR] = Text{fixPath(input.Output.Dir)}
  (*config)[SECTION_OUTPUT][KEY_PREVIEW] = Text{fixPath(input.Output.Preview)}
  (*config)[SECTION_OUTPUT][KEY_REPORT] = Text{fixPath(input.Output.Report)}
  return nil
}

// Used internally. Process "input" section.
func processConfigJobInput(input *JsonJob, config *Config) error {
  (*config)[SECTION_INPUT] = make(ConfigMap)

  textSeq := make([]string, 0, len(input.Input.Files))
  for _, file := range input.Input.Files {
    file = fixPath(file)
    if len(file) > 0 { textSeq = append(textSeq, file) }
  }
  (*config)[SECTION_INPUT][KEY_INPUT_FILES] = TextArray{textSeq}

  return nil
}

// Used internally. Process "filters" section.
func processConfigJobFilters(input *JsonJob, config *Config) error {
  (*config)[SECTION_FILTERS] = make(ConfigMap)

  // process filters sequentially
  for index, filter := range input.Filters {
    name := strings.ToLower(strings.TrimSpace(filter.Name))
    if len(name) == 0 { return fmt.Errorf("Filters>Filter %d: No name specified", index) }
    f := Filter{ Name: name, Options: make(map[string]string) }
    for _, option := range filter.Options {
      key := strings.ToLower(strings.TrimSpace(option.Key))
      if len(key) == 0 { logging.Warnf("Filter %q: Skipping option without key\n", name); continue }
      f.Options[key] = strings.TrimSpace(option.Value)
    }
    (*config)[SECTION_FILTERS][strconv.Itoa(index)] = f
  }

  return nil
}
