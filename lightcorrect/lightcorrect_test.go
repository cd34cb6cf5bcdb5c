package main

import (
  "context"
  "image"
  "image/color"
  "os"
  "path/filepath"
  "strings"
  "testing"

  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"

  "github.com/InfinityTools/lightcorrect/config"
  "github.com/InfinityTools/lightcorrect/correct"
  "github.com/InfinityTools/lightcorrect/graphics"
  "github.com/InfinityTools/lightcorrect/video"
)

func castImage(w, h int) *image.NRGBA {
  img := image.NewNRGBA(image.Rect(0, 0, w, h))
  for y := 0; y < h; y++ {
    for x := 0; x < w; x++ {
      img.SetNRGBA(x, y, color.NRGBA{uint8(150 + x), uint8(80 + y), 40, 255})
    }
  }
  return img
}

func TestSetupJob(t *testing.T) {
  cmdOptions = CmdOptions{}
  cfg, err := config.ImportConfig(strings.NewReader(`{
    "video": { "lossless": false, "quality": 60, "threaded": true, "batch_size": 2 },
    "output": { "dir": "out" }
  }`))
  require.NoError(t, err)

  job, err := setupJob(cfg)
  require.NoError(t, err)
  assert.Empty(t, job.inputs)
  assert.Equal(t, "out", job.outputDir)
  assert.False(t, job.seqOptions.Video.Lossless)
  assert.Equal(t, 60, job.seqOptions.Video.Quality)
  assert.True(t, job.seqOptions.Threaded)
  assert.Equal(t, 2, job.seqOptions.BatchSize)

  // command line options take precedence
  cmdOptions.quality = OptInt{20, true}
  cmdOptions.threaded = OptBool{false, true}
  cmdOptions.outputDir = OptText{"elsewhere", true}
  job, err = setupJob(cfg)
  require.NoError(t, err)
  assert.Equal(t, 20, job.seqOptions.Video.Quality)
  assert.False(t, job.seqOptions.Threaded)
  assert.Equal(t, "elsewhere", job.outputDir)
  cmdOptions = CmdOptions{}

  cfg, err = config.ImportConfig(strings.NewReader(`{"input": {"files": ["does/not/exist.png"]}}`))
  require.NoError(t, err)
  _, err = setupJob(cfg)
  assert.Error(t, err)
}

func TestSetupPipeline(t *testing.T) {
  cmdOptions = CmdOptions{}
  defer func() { cmdOptions = CmdOptions{} }()
  cfg, err := config.ImportConfig(strings.NewReader(`{
    "correction": { "clip_limit": 2.0, "tiles": [4, 2], "white_balance_strength": 0.5 }
  }`))
  require.NoError(t, err)

  p := correct.NewPipeline()
  require.NoError(t, setupPipeline(cfg, p))
  assert.Equal(t, 2.0, p.GetFilter(correct.FilterNameClahe).GetOption("cliplimit"))
  assert.Equal(t, []int{4, 2}, p.GetFilter(correct.FilterNameClahe).GetOption("tiles"))
  assert.Equal(t, 0.5, p.GetFilter(correct.FilterNameWhiteBalance).GetOption("strength"))

  // invalid overrides are skipped
  cmdOptions.clipLimit = OptFloat{1.5, true}
  cmdOptions.filterOption = []OptText{{"clahe:tiles=3", true}, {"unknown:key=1", true}}
  p = correct.NewPipeline()
  require.NoError(t, setupPipeline(cfg, p))
  assert.Equal(t, 1.5, p.GetFilter(correct.FilterNameClahe).GetOption("cliplimit"))
  assert.Equal(t, []int{3, 3}, p.GetFilter(correct.FilterNameClahe).GetOption("tiles"))

  cfg, err = config.ImportConfig(strings.NewReader(`{"filters": [{"name": "unknown"}]}`))
  require.NoError(t, err)
  assert.Error(t, setupPipeline(cfg, correct.NewPipeline()))
}

func TestCorrectAll(t *testing.T) {
  dir := t.TempDir()
  input := filepath.Join(dir, "photo.png")
  require.NoError(t, graphics.Save(input, castImage(48, 32)))
  clip := filepath.Join(dir, "clip.webp")
  w, err := video.Create(clip, video.Descriptor{Width: 16, Height: 16, FrameRate: 10}, video.DefaultOptions())
  require.NoError(t, err)
  for i := 0; i < 3; i++ {
    require.NoError(t, w.WriteFrame(castImage(16, 16)))
  }
  require.NoError(t, w.Close())
  still := filepath.Join(dir, "still.webp")
  require.NoError(t, graphics.Save(still, castImage(20, 10)))

  assert.False(t, isVideoInput(input))
  assert.True(t, isVideoInput(clip))
  assert.False(t, isVideoInput(still))

  cmdOptions = CmdOptions{
    argsExtra: []string{input, clip, still},
    outputDir: OptText{filepath.Join(dir, "out"), true},
    preview: OptText{filepath.Join(dir, "preview.png"), true},
    report: OptText{filepath.Join(dir, "report.png"), true},
  }
  defer func() { cmdOptions = CmdOptions{} }()
  require.NoError(t, correctAll(context.Background()))

  img, err := graphics.Load(filepath.Join(dir, "out", "photo_corrected.png"))
  require.NoError(t, err)
  assert.Equal(t, image.Rect(0, 0, 48, 32), img.Bounds())

  r, err := video.Open(filepath.Join(dir, "out", "clip_corrected.webp"))
  require.NoError(t, err)
  defer r.Close()
  assert.Equal(t, 10, r.Descriptor().FrameRate)

  img, err = graphics.Load(filepath.Join(dir, "out", "still_corrected.webp"))
  require.NoError(t, err)
  assert.Equal(t, image.Rect(0, 0, 20, 10), img.Bounds())

  for _, name := range []string{"preview.png", "report.png"} {
    fi, err := os.Stat(filepath.Join(dir, name))
    require.NoError(t, err, name)
    assert.Greater(t, fi.Size(), int64(0))
  }

  // output file is restricted to a single input
  cmdOptions.output = OptText{filepath.Join(dir, "single.png"), true}
  assert.Error(t, correctAll(context.Background()))
}
