package sequencer

import (
  "context"
  "errors"
  "image"
  "image/color"
  "io"
  "os"
  "path/filepath"
  "testing"

  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"

  "github.com/InfinityTools/lightcorrect/correct"
  "github.com/InfinityTools/lightcorrect/graphics"
  "github.com/InfinityTools/lightcorrect/video"
)

var castColor = color.NRGBA{200, 100, 50, 255}

func solidFrame(w, h int, c color.NRGBA) *image.NRGBA {
  img := image.NewNRGBA(image.Rect(0, 0, w, h))
  for i := 0; i < len(img.Pix); i += 4 {
    img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
  }
  return img
}

func writeSource(t *testing.T, path string, desc video.Descriptor, numFrames int) {
  t.Helper()
  w, err := video.Create(path, desc, video.Options{Lossless: true, Quality: video.DefaultQuality})
  require.NoError(t, err)
  for i := 0; i < numFrames; i++ {
    c := castColor
    c.G = uint8(100 + i)
    require.NoError(t, w.WriteFrame(solidFrame(desc.Width, desc.Height, c)))
  }
  require.NoError(t, w.Close())
}

func readAll(t *testing.T, path string) (video.Descriptor, []*image.NRGBA) {
  t.Helper()
  r, err := video.Open(path)
  require.NoError(t, err)
  defer r.Close()
  frames := make([]*image.NRGBA, 0)
  for {
    frame, err := r.ReadFrame()
    if err == io.EOF { break }
    require.NoError(t, err)
    frames = append(frames, frame)
  }
  return r.Descriptor(), frames
}

// chromaDistance returns the distance of the mean chroma of img from the achromatic point.
func chromaDistance(img image.Image) float64 {
  lab := correct.ToLab(img)
  var sumA, sumB float64
  for i := range lab.A {
    sumA += float64(lab.A[i])
    sumB += float64(lab.B[i])
  }
  n := float64(len(lab.A))
  da, db := sumA / n - correct.LabNeutral, sumB / n - correct.LabNeutral
  if da < 0 { da = -da }
  if db < 0 { db = -db }
  return da + db
}

func TestProcessVideo(t *testing.T) {
  dir := t.TempDir()
  src := filepath.Join(dir, "source.webp")
  dst := filepath.Join(dir, "corrected.webp")
  writeSource(t, src, video.Descriptor{Width: 640, Height: 480, FrameRate: 30}, 10)

  s := New(nil, nil)
  result, err := s.ProcessVideo(context.Background(), src, dst)
  require.NoError(t, err)
  assert.True(t, Succeeded(err))
  assert.Equal(t, 10, result.FramesWritten)
  assert.False(t, result.Truncated)
  assert.NotEmpty(t, result.TraceID)
  assert.Equal(t, video.Descriptor{Width: 640, Height: 480, FrameRate: 30, FrameCount: 10}, result.Descriptor)

  desc, frames := readAll(t, dst)
  assert.Equal(t, 640, desc.Width)
  assert.Equal(t, 480, desc.Height)
  assert.Equal(t, 30, desc.FrameRate)
  require.Len(t, frames, 10)
  _, srcFrames := readAll(t, src)
  for i, frame := range frames {
    assert.Equal(t, image.Rect(0, 0, 640, 480), frame.Bounds())
    assert.Less(t, chromaDistance(frame), chromaDistance(srcFrames[i]), "frame %d", i)
  }
}

func TestProcessVideoThreaded(t *testing.T) {
  dir := t.TempDir()
  src := filepath.Join(dir, "source.y4m")
  writeSource(t, src, video.Descriptor{Width: 32, Height: 24, FrameRate: 25}, 7)

  opts := DefaultOptions()
  seqDst := filepath.Join(dir, "sequential.webp")
  _, err := New(nil, &opts).ProcessVideo(context.Background(), src, seqDst)
  require.NoError(t, err)

  opts.Threaded = true
  opts.BatchSize = 3
  s := New(nil, &opts)
  thrDst := filepath.Join(dir, "threaded.webp")
  result, err := s.ProcessVideo(context.Background(), src, thrDst)
  require.NoError(t, err)
  assert.Equal(t, 7, result.FramesWritten)
  assert.Equal(t, 25, result.Descriptor.FrameRate)

  _, seqFrames := readAll(t, seqDst)
  _, thrFrames := readAll(t, thrDst)
  require.Len(t, thrFrames, len(seqFrames))
  for i := range seqFrames {
    assert.Equal(t, seqFrames[i].Pix, thrFrames[i].Pix, "frame %d", i)
  }
}

func TestProcessVideoDecodeError(t *testing.T) {
  dir := t.TempDir()
  dst := filepath.Join(dir, "corrected.webp")
  s := New(nil, nil)

  for _, src := range []string{filepath.Join(dir, "missing.webp"), filepath.Join(dir, "clip.xyz")} {
    result, err := s.ProcessVideo(context.Background(), src, dst)
    assert.Nil(t, result)
    assert.False(t, Succeeded(err))
    var decodeErr *DecodeError
    require.True(t, errors.As(err, &decodeErr))
    assert.Equal(t, src, decodeErr.Path)
    _, err = os.Stat(dst)
    assert.True(t, os.IsNotExist(err), "destination must not be created")
  }
}

func TestProcessVideoEncodeError(t *testing.T) {
  dir := t.TempDir()
  src := filepath.Join(dir, "source.y4m")
  writeSource(t, src, video.Descriptor{Width: 8, Height: 8, FrameRate: 30}, 2)

  s := New(nil, nil)
  for _, dst := range []string{filepath.Join(dir, "missing", "out.webp"), filepath.Join(dir, "out.xyz")} {
    _, err := s.ProcessVideo(context.Background(), src, dst)
    var encodeErr *EncodeError
    require.True(t, errors.As(err, &encodeErr))
    assert.Equal(t, dst, encodeErr.Path)
  }
}

func TestProcessVideoTruncated(t *testing.T) {
  dir := t.TempDir()
  src := filepath.Join(dir, "source.y4m")
  writeSource(t, src, video.Descriptor{Width: 16, Height: 12, FrameRate: 30}, 3)
  fi, err := os.Stat(src)
  require.NoError(t, err)
  // cut the last frame in half
  frameSize := int64(len("FRAME\n") + 16 * 12 * 3)
  require.NoError(t, os.Truncate(src, fi.Size() - frameSize / 2))

  t.Run("truncate", func(t *testing.T) {
    dst := filepath.Join(dir, "truncated.webp")
    result, err := New(nil, nil).ProcessVideo(context.Background(), src, dst)
    require.NoError(t, err)
    assert.True(t, result.Truncated)
    assert.Equal(t, 2, result.FramesWritten)
    _, frames := readAll(t, dst)
    assert.Len(t, frames, 2)
  })

  t.Run("strict", func(t *testing.T) {
    opts := DefaultOptions()
    opts.Strict = true
    result, err := New(nil, &opts).ProcessVideo(context.Background(), src, filepath.Join(dir, "strict.webp"))
    var decodeErr *DecodeError
    require.True(t, errors.As(err, &decodeErr))
    assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
    require.NotNil(t, result)
    assert.Equal(t, 2, result.FramesWritten)
  })
}

func TestProcessVideoCanceled(t *testing.T) {
  dir := t.TempDir()
  src := filepath.Join(dir, "source.y4m")
  writeSource(t, src, video.Descriptor{Width: 8, Height: 8, FrameRate: 30}, 3)

  ctx, cancel := context.WithCancel(context.Background())
  cancel()
  dst := filepath.Join(dir, "canceled.y4m")
  result, err := New(nil, nil).ProcessVideo(ctx, src, dst)
  assert.True(t, errors.Is(err, context.Canceled))
  require.NotNil(t, result)
  assert.Equal(t, 0, result.FramesWritten)
  _, err = os.Stat(dst)
  assert.True(t, os.IsNotExist(err), "empty destination must be removed")
}

func TestProcessVideoNoFrames(t *testing.T) {
  frameSize := int64(len("FRAME\n") + 16 * 12 * 3)

  for _, tc := range []struct {
    name      string
    cut       int64
    truncated bool
  }{
    {"frame cut short", frameSize / 2, true},
    {"header only", frameSize, false},
  } {
    t.Run(tc.name, func(t *testing.T) {
      dir := t.TempDir()
      src := filepath.Join(dir, "source.y4m")
      writeSource(t, src, video.Descriptor{Width: 16, Height: 12, FrameRate: 30}, 1)
      fi, err := os.Stat(src)
      require.NoError(t, err)
      require.NoError(t, os.Truncate(src, fi.Size() - tc.cut))

      dst := filepath.Join(dir, "corrected.webp")
      result, err := New(nil, nil).ProcessVideo(context.Background(), src, dst)
      var decodeErr *DecodeError
      require.True(t, errors.As(err, &decodeErr))
      assert.Equal(t, src, decodeErr.Path)
      assert.True(t, errors.Is(err, ErrNoFrames))
      require.NotNil(t, result)
      assert.Equal(t, tc.truncated, result.Truncated)
      assert.Equal(t, 0, result.FramesWritten)
      _, err = os.Stat(dst)
      assert.True(t, os.IsNotExist(err), "empty destination must be removed")
    })
  }
}

func TestProcessImage(t *testing.T) {
  dir := t.TempDir()
  path := filepath.Join(dir, "cast.png")
  src := solidFrame(40, 30, castColor)
  require.NoError(t, graphics.Save(path, src))

  s := New(nil, nil)
  result, err := s.ProcessImage(path)
  require.NoError(t, err)
  assert.Equal(t, path, result.Path)
  assert.NotEmpty(t, result.TraceID)
  assert.Equal(t, src.Pix, result.Original.Pix)
  assert.Equal(t, src.Bounds(), result.Corrected.Bounds())
  assert.Less(t, chromaDistance(result.Corrected), chromaDistance(result.Original))

  other, err := s.ProcessImage(path)
  require.NoError(t, err)
  assert.NotEqual(t, result.TraceID, other.TraceID)
}

func TestProcessImageDecodeError(t *testing.T) {
  dir := t.TempDir()
  corrupt := filepath.Join(dir, "corrupt.png")
  require.NoError(t, os.WriteFile(corrupt, []byte("\x89PNG garbage"), 0644))

  s := New(nil, nil)
  for _, path := range []string{filepath.Join(dir, "missing.png"), corrupt} {
    result, err := s.ProcessImage(path)
    assert.Nil(t, result)
    var decodeErr *DecodeError
    require.True(t, errors.As(err, &decodeErr), path)
    assert.Equal(t, path, decodeErr.Path)
  }
}

func TestNew(t *testing.T) {
  p := correct.NewPipeline()
  p.SetMultiThreaded(true)
  s := New(p, nil)
  assert.Same(t, p, s.GetPipeline())
  assert.Equal(t, DefaultOptions(), s.GetOptions())
  // threading is a property of the sequencer, the caller's pipeline keeps its state
  assert.True(t, p.GetMultiThreaded())

  p.SetMultiThreaded(false)
  opts := Options{Threaded: true, BatchSize: 0}
  s = New(p, &opts)
  assert.False(t, p.GetMultiThreaded())
  assert.True(t, s.GetOptions().Threaded)
  assert.Equal(t, 1, s.GetOptions().BatchSize)
}
