package main
// Handles command line arguments for lightcorrect.

import (
  "errors"
  "fmt"
  "os"

  "github.com/InfinityTools/go-cmdargs"
  "github.com/InfinityTools/go-logging"
)

const (
  CMDOPT_HELP = "help"
  CMDOPT_VERSION = "version"
  CMDOPT_VERBOSE = "verbose"
  CMDOPT_SILENT = "silent"
  CMDOPT_LOG_STYLE = "log-style"
  CMDOPT_CONFIG = "config"
  CMDOPT_OUTPUT = "output"
  CMDOPT_OUTPUT_DIR = "output-dir"
  CMDOPT_CLIP_LIMIT = "clip-limit"
  CMDOPT_TILES = "tiles"
  CMDOPT_WB_STRENGTH = "strength"
  CMDOPT_THREADED = "threaded"
  CMDOPT_NO_THREADED = "no-threaded"
  CMDOPT_BATCH_SIZE = "batch-size"
  CMDOPT_STRICT = "strict"
  CMDOPT_NO_STRICT = "no-strict"
  CMDOPT_LOSSLESS = "lossless"
  CMDOPT_LOSSY = "lossy"
  CMDOPT_QUALITY = "quality"
  CMDOPT_PREVIEW = "preview"
  CMDOPT_REPORT = "report"
  CMDOPT_FILTER_OPTION = "filter"
)

type OptBool struct { value bool; set bool }
type OptInt struct { value int; set bool }
type OptFloat struct { value float64; set bool }
type OptText struct { value string; set bool }

type CmdOptions struct {
  help            OptBool
  version         OptBool
  verbose         OptBool
  logStyle        OptBool
  config          OptText
  output          OptText
  outputDir       OptText
  clipLimit       OptFloat
  tiles           OptText
  wbStrength      OptFloat
  threaded        OptBool
  batchSize       OptInt
  strict          OptBool
  lossless        OptBool
  quality         OptInt
  preview         OptText
  report          OptText
  filterOption    []OptText
  optionsLength   int
  argSelf         string
  argsExtra       []string
}

var cmdOptions  CmdOptions


func loadArgs(args []string) error {
  cmdOptions = CmdOptions{}
  params := cmdargs.Create()
  params.AddParameter(CMDOPT_HELP, nil, 0)
  params.AddParameter(CMDOPT_VERSION, nil, 0)
  params.AddParameter(CMDOPT_VERBOSE, nil, 0)
  params.AddParameter(CMDOPT_SILENT, nil, 0)
  params.AddParameter(CMDOPT_LOG_STYLE, nil, 0)
  params.AddParameter(CMDOPT_CONFIG, nil, 1)
  params.AddParameter(CMDOPT_OUTPUT, nil, 1)
  params.AddParameter(CMDOPT_OUTPUT_DIR, nil, 1)
  params.AddParameter(CMDOPT_CLIP_LIMIT, nil, 1)
  params.AddParameter(CMDOPT_TILES, nil, 1)
  params.AddParameter(CMDOPT_WB_STRENGTH, nil, 1)
  params.AddParameter(CMDOPT_THREADED, nil, 0)
  params.AddParameter(CMDOPT_NO_THREADED, nil, 0)
  params.AddParameter(CMDOPT_BATCH_SIZE, nil, 1)
  params.AddParameter(CMDOPT_STRICT, nil, 0)
  params.AddParameter(CMDOPT_NO_STRICT, nil, 0)
  params.AddParameter(CMDOPT_LOSSLESS, nil, 0)
  params.AddParameter(CMDOPT_LOSSY, nil, 0)
  params.AddParameter(CMDOPT_QUALITY, nil, 1)
  params.AddParameter(CMDOPT_PREVIEW, nil, 1)
  params.AddParameter(CMDOPT_REPORT, nil, 1)
  params.AddParameter(CMDOPT_FILTER_OPTION, nil, 1)

  err := params.Evaluate(args)
  if err != nil { return err }

  // validating extra arguments
  cmdOptions.argSelf = params.GetArgSelf()
  cmdOptions.argsExtra = make([]string, 0)
  for i := 0; i < params.GetArgExtraLength(); i++ {
    s := params.GetArgExtra(i).ToString()
    // Expanding wildcard
    expanded := params.GetExpandedArgExtra(i)
    if len(expanded) == 0 { expanded = []string{s} }  // falling back to check directly
    for _, name := range expanded {
      fi, err := os.Stat(name)
      if err != nil { return fmt.Errorf("Input file at %d: %v", len(cmdOptions.argsExtra), err) }
      if !fi.Mode().IsRegular() { return fmt.Errorf("Input file does not exist: %q", name) }
      cmdOptions.argsExtra = append(cmdOptions.argsExtra, name)
    }
  }

  // validating options
  cmdOptions.filterOption = make([]OptText, 0)
  cmdOptions.optionsLength = 0
  for idx := 0; idx < params.GetArgLength(); idx++ {
    arg, err := params.GetArgAt(idx)
    if err != nil {
      logging.Warnf("Could not parse command line option at index %d. Skipping...\n", idx)
      continue
    }
    switch arg.Name {
      case CMDOPT_HELP:
        if !cmdOptions.help.set { cmdOptions.optionsLength++ }
        cmdOptions.help = OptBool{true, true}
        return nil
      case CMDOPT_VERSION:
        if !cmdOptions.version.set { cmdOptions.optionsLength++ }
        cmdOptions.version = OptBool{true, true}
        return nil
      case CMDOPT_VERBOSE:
        if !cmdOptions.verbose.set { cmdOptions.optionsLength++ }
        cmdOptions.verbose = OptBool{true, true}
      case CMDOPT_SILENT:
        if !cmdOptions.verbose.set { cmdOptions.optionsLength++ }
        cmdOptions.verbose = OptBool{false, true}
      case CMDOPT_LOG_STYLE:
        if !cmdOptions.logStyle.set { cmdOptions.optionsLength++ }
        cmdOptions.logStyle = OptBool{true, true}
      case CMDOPT_CONFIG:
        if !cmdOptions.config.set { cmdOptions.optionsLength++ }
        if len(arg.Arguments) > 0 {
          s := arg.Arguments[0].ToString()
          if len(s) == 0 { return fmt.Errorf("Option %q: No configuration file specified", arg.Name) }
          cmdOptions.config = OptText{s, true}
        }
      case CMDOPT_OUTPUT:
        if !cmdOptions.output.set { cmdOptions.optionsLength++ }
        if len(arg.Arguments) > 0 {
          s := arg.Arguments[0].ToString()
          if len(s) == 0 { return fmt.Errorf("Option %q: No output file specified", arg.Name) }
          cmdOptions.output = OptText{s, true}
        }
      case CMDOPT_OUTPUT_DIR:
        if !cmdOptions.outputDir.set { cmdOptions.optionsLength++ }
        if len(arg.Arguments) > 0 {
          cmdOptions.outputDir = OptText{arg.Arguments[0].ToString(), true}
        }
      case CMDOPT_CLIP_LIMIT:
        if !cmdOptions.clipLimit.set { cmdOptions.optionsLength++ }
        if len(arg.Arguments) > 0 {
          if f, x := arg.Arguments[0].Float(); x && f >= 0.0 && f <= 256.0 {
            cmdOptions.clipLimit = OptFloat{float64(f), true}
          } else {
            return fmt.Errorf("Option %q: Invalid argument %v", arg.Name, arg.Arguments[0])
          }
        }
      case CMDOPT_TILES:
        if !cmdOptions.tiles.set { cmdOptions.optionsLength++ }
        if len(arg.Arguments) > 0 {
          cmdOptions.tiles = OptText{arg.Arguments[0].ToString(), true}
        }
      case CMDOPT_WB_STRENGTH:
        if !cmdOptions.wbStrength.set { cmdOptions.optionsLength++ }
        if len(arg.Arguments) > 0 {
          if f, x := arg.Arguments[0].Float(); x && f >= 0.0 && f <= 1.0 {
            cmdOptions.wbStrength = OptFloat{float64(f), true}
          } else {
            return fmt.Errorf("Option %q: Invalid argument %v", arg.Name, arg.Arguments[0])
          }
        }
      case CMDOPT_THREADED:
        if !cmdOptions.threaded.set { cmdOptions.optionsLength++ }
        cmdOptions.threaded = OptBool{true, true}
      case CMDOPT_NO_THREADED:
        if !cmdOptions.threaded.set { cmdOptions.optionsLength++ }
        cmdOptions.threaded = OptBool{false, true}
      case CMDOPT_BATCH_SIZE:
        if !cmdOptions.batchSize.set { cmdOptions.optionsLength++ }
        if len(arg.Arguments) > 0 {
          if i, x := arg.Arguments[0].Int(); x && i >= 1 && i <= 1024 {
            cmdOptions.batchSize = OptInt{int(i), true}
          } else {
            return fmt.Errorf("Option %q: Invalid argument %v", arg.Name, arg.Arguments[0])
          }
        }
      case CMDOPT_STRICT:
        if !cmdOptions.strict.set { cmdOptions.optionsLength++ }
        cmdOptions.strict = OptBool{true, true}
      case CMDOPT_NO_STRICT:
        if !cmdOptions.strict.set { cmdOptions.optionsLength++ }
        cmdOptions.strict = OptBool{false, true}
      case CMDOPT_LOSSLESS:
        if !cmdOptions.lossless.set { cmdOptions.optionsLength++ }
        cmdOptions.lossless = OptBool{true, true}
      case CMDOPT_LOSSY:
        if !cmdOptions.lossless.set { cmdOptions.optionsLength++ }
        cmdOptions.lossless = OptBool{false, true}
      case CMDOPT_QUALITY:
        if !cmdOptions.quality.set { cmdOptions.optionsLength++ }
        if len(arg.Arguments) > 0 {
          if i, x := arg.Arguments[0].Int(); x && i >= 0 && i <= 100 {
            cmdOptions.quality = OptInt{int(i), true}
          } else {
            return fmt.Errorf("Option %q: Invalid argument %v", arg.Name, arg.Arguments[0])
          }
        }
      case CMDOPT_PREVIEW:
        if !cmdOptions.preview.set { cmdOptions.optionsLength++ }
        if len(arg.Arguments) > 0 {
          cmdOptions.preview = OptText{arg.Arguments[0].ToString(), true}
        }
      case CMDOPT_REPORT:
        if !cmdOptions.report.set { cmdOptions.optionsLength++ }
        if len(arg.Arguments) > 0 {
          cmdOptions.report = OptText{arg.Arguments[0].ToString(), true}
        }
      case CMDOPT_FILTER_OPTION:
        if len(arg.Arguments) > 0 {
          cmdOptions.optionsLength++
          cmdOptions.filterOption = append(cmdOptions.filterOption, OptText{arg.Arguments[0].ToString(), true})
        }
      default:
        return fmt.Errorf("Unrecognized option: %q", arg.Name)
    }
  }

  // Invalid combination: Options, but neither input files nor config file
  if len(cmdOptions.argsExtra) == 0 && !cmdOptions.config.set && cmdOptions.optionsLength > 0 {
    return errors.New("No input file specified")
  }

  return nil
}


func argsExtraLength() int {
  if cmdOptions.argsExtra == nil { return 0 }
  return len(cmdOptions.argsExtra)
}

func argsExtra(index int) string {
  if cmdOptions.argsExtra == nil { return "" }
  if index < 0 || index >= len(cmdOptions.argsExtra) { return "" }
  return cmdOptions.argsExtra[index]
}

func argsLength() int {
  return cmdOptions.optionsLength
}

func argsHelp() (bool, bool) {
  return cmdOptions.help.value, cmdOptions.help.set
}

func argsVersion() (bool, bool) {
  return cmdOptions.version.value, cmdOptions.version.set
}

func argsVerbose() (bool, bool) {
  return cmdOptions.verbose.value, cmdOptions.verbose.set
}

func argsLogStyle() (bool, bool) {
  return cmdOptions.logStyle.value, cmdOptions.logStyle.set
}

func argsConfig() (string, bool) {
  return cmdOptions.config.value, cmdOptions.config.set
}

func argsOutput() (string, bool) {
  return cmdOptions.output.value, cmdOptions.output.set
}

func argsOutputDir() (string, bool) {
  return cmdOptions.outputDir.value, cmdOptions.outputDir.set
}

func argsClipLimit() (float64, bool) {
  return cmdOptions.clipLimit.value, cmdOptions.clipLimit.set
}

func argsTiles() (string, bool) {
  return cmdOptions.tiles.value, cmdOptions.tiles.set
}

func argsWBStrength() (float64, bool) {
  return cmdOptions.wbStrength.value, cmdOptions.wbStrength.set
}

func argsThreaded() (bool, bool) {
  return cmdOptions.threaded.value, cmdOptions.threaded.set
}

func argsBatchSize() (int, bool) {
  return cmdOptions.batchSize.value, cmdOptions.batchSize.set
}

func argsStrict() (bool, bool) {
  return cmdOptions.strict.value, cmdOptions.strict.set
}

func argsLossless() (bool, bool) {
  return cmdOptions.lossless.value, cmdOptions.lossless.set
}

func argsQuality() (int, bool) {
  return cmdOptions.quality.value, cmdOptions.quality.set
}

func argsPreview() (string, bool) {
  return cmdOptions.preview.value, cmdOptions.preview.set
}

func argsReport() (string, bool) {
  return cmdOptions.report.value, cmdOptions.report.set
}

func argsFilterOptions() ([]string, bool) {
  retVal := make([]string, len(cmdOptions.filterOption))
  for idx, v := range cmdOptions.filterOption {
    retVal[idx] = v.value
  }
  return retVal, len(cmdOptions.filterOption) > 0
}
