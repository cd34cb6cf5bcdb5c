package config
// Parse functionality for XML structures.

import (
  "encoding/xml"
  "fmt"
  "strings"
)

// Used internally by xml.Unmarshal to store correction settings.
type XmlCorrection struct {
  ClipLimit     string      `xml:"cliplimit"`
  Tiles         string      `xml:"tiles"`
  WBStrength    string      `xml:"whitebalancestrength"`
}

// Used internally by xml.Unmarshal to store video settings.
type XmlVideo struct {
  Lossless      string      `xml:"lossless"`
  Quality       string      `xml:"quality"`
  Strict        string      `xml:"strict"`
  Threaded      string      `xml:"threaded"`
  BatchSize     string      `xml:"batchsize"`
}

// Used internally by xml.Unmarshal to store output settings.
type XmlOutput struct {
  Path          string      `xml:"path"`
  Dir           string      `xml:"dir"`
  Preview       string      `xml:"preview"`
  Report        string      `xml:"report"`
}

// Used internally by xml.Unmarshal to store input settings.
type XmlInput struct {
  Files         []string    `xml:"files>path"`
}

// Used internally by xml.Unmarshal to store filter settings.
type XmlFilterOption struct {
  Key           string      `xml:"key"`
  Value         string      `xml:"value"`
}

// Used internally by xml.Unmarshal to store filter options.
type XmlFilter struct {
  Name          string              `xml:"name"`
  Options       []XmlFilterOption   `xml:"option"`
}

// Used internally by xml.Unmarshal to store configuration data from XML scripts.
type XmlJob struct {
  XMLName       xml.Name        `xml:"job"`
  Correction    XmlCorrection   `xml:"correction"`
  Video         XmlVideo        `xml:"video"`
  Output        XmlOutput       `xml:"output"`
  Input         XmlInput        `xml:"input"`
  Filters       []XmlFilter     `xml:"filters>filter"`
}


// Used internally. Parses XML source into intermediate structures.
func importXml(buffer []byte) (config *Config, err error) {
  xmlJob := XmlJob{}
  err = xml.Unmarshal(buffer, &xmlJob)
  if err != nil { return nil, fmt.Errorf("Configuration: %v", err) }

  config, err = processConfigJob(convertXmlJob(&xmlJob))
  return
}


// Used internally. Converts the textual XML content into the intermediate structure shared by all formats.
// Empty elements are treated as omitted.
func convertXmlJob(input *XmlJob) *JsonJob {
  job := JsonJob{}

  if s := strings.TrimSpace(input.Correction.ClipLimit); len(s) > 0 {
    v := tryParseFloat(s, -1.0)
    job.Correction.ClipLimit = &v
  }
  job.Correction.Tiles = tryParseIntSeq(input.Correction.Tiles, 0)
  if s := strings.TrimSpace(input.Correction.WBStrength); len(s) > 0 {
    v := tryParseFloat(s, -1.0)
    job.Correction.WBStrength = &v
  }

  if s := strings.TrimSpace(input.Video.Lossless); len(s) > 0 {
    v := tryParseBool(s, DefaultLossless)
    job.Video.Lossless = &v
  }
  if s := strings.TrimSpace(input.Video.Quality); len(s) > 0 {
    v := tryParseInt(s, -1)
    job.Video.Quality = &v
  }
  if s := strings.TrimSpace(input.Video.Strict); len(s) > 0 {
    v := tryParseBool(s, DefaultStrict)
    job.Video.Strict = &v
  }
  if s := strings.TrimSpace(input.Video.Threaded); len(s) > 0 {
    v := tryParseBool(s, DefaultThreaded)
    job.Video.Threaded = &v
  }
  if s := strings.TrimSpace(input.Video.BatchSize); len(s) > 0 {
    v := tryParseInt(s, 0)
    job.Video.BatchSize = &v
  }

  job.Output = JsonOutput{Path: input.Output.Path, Dir: input.Output.Dir, Preview: input.Output.Preview, Report: input.Output.Report}
  job.Input.Files = input.Input.Files

  job.Filters = make([]JsonFilter, len(input.Filters))
  for idx, filter := range input.Filters {
    job.Filters[idx].Name = filter.Name
    job.Filters[idx].Options = make([]JsonFilterOptions, len(filter.Options))
    for i, option := range filter.Options {
      job.Filters[idx].Options[i] = JsonFilterOptions{Key: option.Key, Value: option.Value}
    }
  }

  return &job
}
