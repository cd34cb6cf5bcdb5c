/*
Light Corrector is a command line tool for removing color casts and uneven lighting from images and videos.

Light Corrector is released under the BSD 2-clause license. See LICENSE in the project's root folder for more details.
*/
package main

import (
  "context"
  "errors"
  "fmt"
  "os"
  "os/signal"
  "path/filepath"
  "strings"

  "github.com/InfinityTools/go-logging"

  "github.com/InfinityTools/lightcorrect"
  "github.com/InfinityTools/lightcorrect/config"
  "github.com/InfinityTools/lightcorrect/correct"
  "github.com/InfinityTools/lightcorrect/graphics"
  "github.com/InfinityTools/lightcorrect/preview"
  "github.com/InfinityTools/lightcorrect/report"
  "github.com/InfinityTools/lightcorrect/sequencer"
  "github.com/InfinityTools/lightcorrect/video"
)


const TOOL_NAME = "Light Corrector"

// Settings of a single correction job, merged from configuration data and command line options.
type jobSettings struct {
  inputs      []string
  output      string
  outputDir   string
  previewFile string
  reportFile  string
  seqOptions  sequencer.Options
}


func main() {
  err := loadArgs(os.Args)
  if err != nil {
    fmt.Printf("%v\n", err)
    os.Exit(1)
  }

  // Setting global options
  if b, x := argsVerbose(); x {
    if b {
      logging.SetVerbosity(logging.LOG)
    } else {
      logging.SetVerbosity(logging.ERROR)
    }
  }
  logging.SetPrefixCaller(false)
  if b, x := argsLogStyle(); x && b {
    logging.SetPrefixTimestamp(true)
    logging.SetPrefixLevel(true)
  } else {
    logging.SetPrefixTimestamp(false)
    logging.SetPrefixLevel(false)
  }

  _, hasConfig := argsConfig()
  if _, x := argsVersion(); x {
    lightcorrect.PrintVersion(TOOL_NAME)
  } else if _, x := argsHelp(); x {
    printHelp()
  } else if argsExtraLength() == 0 && !hasConfig {
    printHelp()
  } else {
    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
    logging.Infoln("Starting correction")
    err = correctAll(ctx)
    stop()
    if err != nil {
      logging.Errorf("%v\n", err)
      os.Exit(1)
    }
    logging.Infoln("Correction finished successfully.")
  }
}


// Loads the configuration file if specified. Returns an empty configuration otherwise.
func loadConfig() (*config.Config, error) {
  configFile, x := argsConfig()
  if !x { return config.ImportConfig(strings.NewReader("{}")) }

  if !fileExists(configFile) { return nil, fmt.Errorf("Configuration file not found: %q", configFile) }
  cfg, err := config.LoadConfig(configFile)
  if err != nil { return nil, fmt.Errorf("Error parsing configuration: %v", err) }
  return cfg, nil
}


func correctAll(ctx context.Context) error {
  cfg, err := loadConfig()
  if err != nil { return err }

  job, err := setupJob(cfg)
  if err != nil { return err }
  if len(job.inputs) == 0 { return errors.New("No input file specified") }
  if len(job.output) > 0 && len(job.inputs) > 1 { return errors.New("Output file can only be specified for a single input file") }

  p := correct.NewPipeline()
  err = setupPipeline(cfg, p)
  if err != nil { return err }
  seq := sequencer.New(p, &job.seqOptions)
  presenter := preview.NewPresenter(preview.DefaultWidth, preview.DefaultHeight)

  printSummary(job, p)

  for idx, input := range job.inputs {
    logging.Infof("Starting job %d: %s\n", idx, input)
    output := job.output
    if len(output) == 0 { output = config.AssembleOutputPath(input, job.outputDir) }
    if dir := filepath.Dir(output); !directoryExists(dir) {
      err = os.MkdirAll(dir, 0755)
      if err != nil { return fmt.Errorf("Job %d: Cannot create output path %q: %v", idx, dir, err) }
    }

    if isVideoInput(input) {
      err = correctVideo(ctx, seq, input, output)
    } else {
      err = correctImage(seq, presenter, input, output)
    }
    if err != nil { return fmt.Errorf("Job %d: %v", idx, err) }
    logging.Infof("Finished job %d: %s\n", idx, output)
    if err = ctx.Err(); err != nil { return err }
  }

  return writeDiagnostics(job, presenter)
}


// Merges settings from configuration data and command line options. Command line options take precedence.
func setupJob(cfg *config.Config) (*jobSettings, error) {
  job := jobSettings{seqOptions: sequencer.DefaultOptions()}

  job.inputs = make([]string, 0)
  for i := 0; i < argsExtraLength(); i++ {
    job.inputs = append(job.inputs, argsExtra(i))
  }
  if len(job.inputs) == 0 {
    files, _ := cfg.GetConfigValueTextSeq(config.SECTION_INPUT, config.KEY_INPUT_FILES)
    for _, file := range files {
      if !fileExists(file) { return nil, fmt.Errorf("Input file does not exist: %q", file) }
      job.inputs = append(job.inputs, file)
    }
  }

  job.output, _ = cfg.GetConfigValueText(config.SECTION_OUTPUT, config.KEY_OUTPUT_PATH)
  if s, x := argsOutput(); x { job.output = s }
  job.outputDir, _ = cfg.GetConfigValueText(config.SECTION_OUTPUT, config.KEY_OUTPUT_DIR)
  if s, x := argsOutputDir(); x { job.outputDir = s }
  job.previewFile, _ = cfg.GetConfigValueText(config.SECTION_OUTPUT, config.KEY_PREVIEW)
  if s, x := argsPreview(); x { job.previewFile = s }
  job.reportFile, _ = cfg.GetConfigValueText(config.SECTION_OUTPUT, config.KEY_REPORT)
  if s, x := argsReport(); x { job.reportFile = s }

  opts := &job.seqOptions
  if b, x := cfg.GetConfigValueBool(config.SECTION_VIDEO, config.KEY_THREADED); x { opts.Threaded = b }
  if b, x := argsThreaded(); x { opts.Threaded = b }
  if i, x := cfg.GetConfigValueInt(config.SECTION_VIDEO, config.KEY_BATCH_SIZE); x { opts.BatchSize = int(i) }
  if i, x := argsBatchSize(); x { opts.BatchSize = i }
  if b, x := cfg.GetConfigValueBool(config.SECTION_VIDEO, config.KEY_STRICT); x { opts.Strict = b }
  if b, x := argsStrict(); x { opts.Strict = b }
  if b, x := cfg.GetConfigValueBool(config.SECTION_VIDEO, config.KEY_LOSSLESS); x { opts.Video.Lossless = b }
  if b, x := argsLossless(); x { opts.Video.Lossless = b }
  if i, x := cfg.GetConfigValueInt(config.SECTION_VIDEO, config.KEY_QUALITY); x { opts.Video.Quality = int(i) }
  if i, x := argsQuality(); x { opts.Video.Quality = i }

  return &job, nil
}


// Applies correction parameters and filter options to the pipeline.
func setupPipeline(cfg *config.Config, p *correct.Pipeline) error {
  // correction parameters
  defs := make([]string, 0)
  if f, x := cfg.GetConfigValueFloat(config.SECTION_CORRECTION, config.KEY_WB_STRENGTH); x {
    defs = append(defs, fmt.Sprintf("%s:strength=%v", correct.FilterNameWhiteBalance, f))
  }
  if f, x := cfg.GetConfigValueFloat(config.SECTION_CORRECTION, config.KEY_CLIP_LIMIT); x {
    defs = append(defs, fmt.Sprintf("%s:cliplimit=%v", correct.FilterNameClahe, f))
  }
  if seq, x := cfg.GetConfigValueIntSeq(config.SECTION_CORRECTION, config.KEY_TILES); x && len(seq) > 0 {
    tiles := make([]string, len(seq))
    for i, v := range seq { tiles[i] = fmt.Sprintf("%d", v) }
    defs = append(defs, fmt.Sprintf("%s:tiles=%s", correct.FilterNameClahe, strings.Join(tiles, ",")))
  }
  for idx := 0; idx < cfg.GetConfigFilterLength(); idx++ {
    name, ok := cfg.GetConfigFilterName(idx)
    if !ok { return fmt.Errorf("Empty filter at index=%d", idx) }
    if p.GetFilter(name) == nil { return fmt.Errorf("Unknown filter %q at index=%d", name, idx) }
  }
  defs = append(defs, cfg.GetConfigFilterDefinitions()...)
  for _, def := range defs {
    if err := p.SetFilterOption(def); err != nil { return err }
  }

  // applying override options
  overrides := make([]string, 0)
  if f, x := argsWBStrength(); x { overrides = append(overrides, fmt.Sprintf("%s:strength=%v", correct.FilterNameWhiteBalance, f)) }
  if f, x := argsClipLimit(); x { overrides = append(overrides, fmt.Sprintf("%s:cliplimit=%v", correct.FilterNameClahe, f)) }
  if s, x := argsTiles(); x { overrides = append(overrides, fmt.Sprintf("%s:tiles=%s", correct.FilterNameClahe, s)) }
  if options, x := argsFilterOptions(); x { overrides = append(overrides, options...) }
  for _, def := range overrides {
    logging.Logf("Overriding filter option: %s\n", def)
    if err := p.SetFilterOption(def); err != nil {
      logging.Warnf("Could not set filter option %s: %v\n", def, err)
    }
  }

  return nil
}


// Prints a summary of the current correction options (INFO level).
func printSummary(job *jobSettings, p *correct.Pipeline) {
  var sb strings.Builder
  sb.WriteString("Options: ")
  sb.WriteString(fmt.Sprintf("verbose: %v", logging.GetVerbosity() < logging.INFO))
  sb.WriteString(fmt.Sprintf(", threading: %v", job.seqOptions.Threaded))
  if job.seqOptions.Threaded { sb.WriteString(fmt.Sprintf(", batch size: %d", job.seqOptions.BatchSize)) }
  sb.WriteString(fmt.Sprintf(", strict: %v", job.seqOptions.Strict))
  sb.WriteString(fmt.Sprintf(", lossless: %v", job.seqOptions.Video.Lossless))
  if !job.seqOptions.Video.Lossless { sb.WriteString(fmt.Sprintf(", quality: %d", job.seqOptions.Video.Quality)) }
  if f := p.GetFilter(correct.FilterNameWhiteBalance); f != nil {
    sb.WriteString(fmt.Sprintf(", white balance strength: %v", f.GetOption("strength")))
  }
  if f := p.GetFilter(correct.FilterNameClahe); f != nil {
    sb.WriteString(fmt.Sprintf(", clip limit: %v, tiles: %v", f.GetOption("cliplimit"), f.GetOption("tiles")))
  }
  if len(job.output) > 0 { sb.WriteString(fmt.Sprintf(", output: %q", job.output)) }
  if len(job.outputDir) > 0 { sb.WriteString(fmt.Sprintf(", output dir: %q", job.outputDir)) }
  logging.Infoln(sb.String())
}


// Corrects a single image and writes the result to output.
func correctImage(seq *sequencer.Sequencer, presenter *preview.Presenter, input, output string) error {
  if graphics.FormatFromPath(output) == graphics.TYPE_UNKNOWN {
    return &sequencer.EncodeError{Path: output, Err: fmt.Errorf("Unsupported image format: %q", filepath.Ext(output))}
  }
  result, err := seq.ProcessImage(input)
  if err != nil { return err }

  logging.Logf("[%s] before: %v\n", result.TraceID, report.Analyze(result.Original))
  logging.Logf("[%s] after:  %v\n", result.TraceID, report.Analyze(result.Corrected))
  if err = graphics.Save(output, result.Corrected); err != nil {
    return &sequencer.EncodeError{Path: output, Err: err}
  }
  presenter.Show(result)
  return nil
}


// Returns whether input is processed as a video. WebP files with a single frame are processed as still images.
func isVideoInput(input string) bool {
  if !video.IsVideo(input) { return false }
  if graphics.FormatFromPath(input) == graphics.TYPE_UNKNOWN { return true }
  r, err := video.Open(input)
  if err != nil { return true }
  defer r.Close()
  return r.Descriptor().FrameCount != 1
}


// Corrects all frames of a video and writes them to output.
func correctVideo(ctx context.Context, seq *sequencer.Sequencer, input, output string) error {
  result, err := seq.ProcessVideo(ctx, input, output)
  if result != nil {
    logging.Logf("[%s] frames written: %d (%dx%d, %d fps)\n", result.TraceID, result.FramesWritten,
                 result.Descriptor.Width, result.Descriptor.Height, result.Descriptor.FrameRate)
    if result.Truncated { logging.Warnf("Video %q has been truncated after %d frames\n", output, result.FramesWritten) }
  }
  return err
}


// Writes preview and report files for the most recently corrected image.
func writeDiagnostics(job *jobSettings, presenter *preview.Presenter) error {
  if len(job.previewFile) == 0 && len(job.reportFile) == 0 { return nil }
  result := presenter.Last()
  if result == nil {
    logging.Warnf("No corrected image available. Skipping preview and report.\n")
    return nil
  }

  if len(job.previewFile) > 0 {
    logging.Logf("Writing preview: %s\n", job.previewFile)
    if err := graphics.Save(job.previewFile, presenter.Compose()); err != nil {
      return fmt.Errorf("Cannot write preview %q: %v", job.previewFile, err)
    }
  }
  if len(job.reportFile) > 0 {
    logging.Logf("Writing report: %s\n", job.reportFile)
    if err := report.PlotLightness(job.reportFile, result.Original, result.Corrected); err != nil {
      return fmt.Errorf("Cannot write report %q: %v", job.reportFile, err)
    }
  }
  return nil
}


func printHelp() {
  fmt.Printf("Usage: %s [options] file [file2 ...]\n", os.Args[0])
  helpText := "Removes color casts and uneven lighting from images and videos by applying\n" +
              "automatic white balance and local contrast equalization.\n" +
              "\n" +
           // "...............................................................................\n" +
              "Options:\n" +
              "  --verbose                 Show additional log messages during the correction\n" +
              "                            process.\n" +
              "  --silent                  Suppress any log messages during the correction\n" +
              "                            process except for errors.\n" +
              "  --log-style               Print log messages in log style, complete with\n" +
              "                            timestamp and log level.\n" +
              "  --config file             Load settings from a JSON, XML or YAML configuration\n" +
              "                            file. Input files are taken from the configuration\n" +
              "                            if none are specified on the command line.\n" +
              "  --output file             Set output file. Can only be used with a single input\n" +
              "                            file. Overrides setting in the config file.\n" +
              "  --output-dir path         Set output directory. Output files are named after\n" +
              "                            the input files with the suffix \"" + config.OutputSuffix + "\".\n" +
              "                            Defaults to the directory of the input file.\n" +
              "  --clip-limit value        Set contrast clip limit. Allowed range: [0, 256].\n" +
              "                            Set to 0 to disable clipping. Default: 3.0\n" +
              "  --tiles x,y               Set number of contrast equalization tiles.\n" +
              "                            Allowed range: [1, 256]. Default: 8,8\n" +
              "  --strength value          Set white balance strength. Allowed range:\n" +
              "                            [0.0, 1.0]. Default: 1.0\n" +
              "  --filter name:key=value   Set or override a filter option. 'name' is either\n" +
              "                            \"whitebalance\" or \"clahe\". Add multiple --filter\n" +
              "                            instances to set multiple filter options.\n" +
              "  --threaded                Correct video frames in parallel. May speed up the\n" +
              "                            correction process on multi-core systems.\n" +
              "  --no-threaded             Correct video frames sequentially.\n" +
              "  --batch-size count        Number of video frames corrected in parallel.\n" +
              "                            Allowed range: [1, 1024]. Default: number of CPUs\n" +
              "  --strict                  Abort if a video frame cannot be read instead of\n" +
              "                            truncating the video.\n" +
              "  --no-strict               Truncate videos at unreadable frames.\n" +
              "  --lossless                Encode video frames losslessly if supported.\n" +
              "  --lossy                   Encode video frames with lossy compression.\n" +
              "  --quality value           Set quality of lossy video compression. Allowed\n" +
              "                            range: [0, 100]. Default: 90\n" +
              "  --preview file            Write original and corrected image side by side to\n" +
              "                            the given image file.\n" +
              "  --report file             Write a plot of the lightness distribution before and\n" +
              "                            after correction to the given file.\n" +
              "  --help                    Print this help and terminate.\n" +
              "  --version                 Print version information and terminate.\n" +
              "\n" +
              "Supported video formats: " + strings.Join(video.Formats(), ", ") + "\n" +
              "Supported image formats: .bmp, .gif, .jpg, .jpeg, .png, .webp"
  fmt.Println(helpText)
}


// Used internally. Returns whether the specified filename points to a regular existing file.
func fileExists(file string) bool {
  if len(file) == 0 { return false }
  fi, err := os.Stat(file)
  if err != nil { return false }
  return fi.Mode().IsRegular()
}

// Used internally. Returns whether the specified path points to an existing directory.
func directoryExists(dir string) bool {
  if len(dir) == 0 { return true }  // special
  fi, err := os.Stat(dir)
  if err != nil { return false }
  return fi.Mode().IsDir()
}
