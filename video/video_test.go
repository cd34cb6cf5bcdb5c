package video

import (
  "errors"
  "image"
  "image/color"
  "io"
  "os"
  "path/filepath"
  "testing"

  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"
)

func solidFrame(w, h int, c color.NRGBA) *image.NRGBA {
  img := image.NewNRGBA(image.Rect(0, 0, w, h))
  for i := 0; i < len(img.Pix); i += 4 {
    img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
  }
  return img
}

func gradientFrame(w, h, seed int) *image.NRGBA {
  img := image.NewNRGBA(image.Rect(0, 0, w, h))
  for y := 0; y < h; y++ {
    for x := 0; x < w; x++ {
      img.SetNRGBA(x, y, color.NRGBA{byte(x * 4 + seed), byte(y * 4), byte(seed * 16), 255})
    }
  }
  return img
}

func writeVideo(t *testing.T, path string, desc Descriptor, opts Options, frames []*image.NRGBA) {
  t.Helper()
  w, err := Create(path, desc, opts)
  require.NoError(t, err)
  for _, frame := range frames {
    require.NoError(t, w.WriteFrame(frame))
  }
  assert.Equal(t, len(frames), w.FrameCount())
  require.NoError(t, w.Close())
}

func readVideo(t *testing.T, path string) (Descriptor, []*image.NRGBA) {
  t.Helper()
  r, err := Open(path)
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

func maxPixelDiff(a, b *image.NRGBA) int {
  diff := 0
  for i := range a.Pix {
    d := int(a.Pix[i]) - int(b.Pix[i])
    if d < 0 { d = -d }
    if d > diff { diff = d }
  }
  return diff
}

func TestRegistry(t *testing.T) {
  assert.True(t, IsVideo("clip.webp"))
  assert.True(t, IsVideo("/tmp/CLIP.Y4M"))
  assert.False(t, IsVideo("photo.png"))
  assert.Contains(t, Formats(), ".webp")
  assert.Contains(t, Formats(), ".y4m")

  codec, err := Codec("out.webp", DefaultOptions())
  require.NoError(t, err)
  assert.Equal(t, CodecWebPLossless, codec)
  codec, err = Codec("out.webp", Options{Lossless: false, Quality: 80})
  require.NoError(t, err)
  assert.Equal(t, CodecWebPLossy, codec)
  codec, err = Codec("out.y4m", DefaultOptions())
  require.NoError(t, err)
  assert.Equal(t, CodecY4M, codec)

  _, err = Codec("out.xyz", DefaultOptions())
  assert.True(t, errors.Is(err, ErrUnsupportedFormat))
  _, err = Open("missing.xyz")
  assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestCreateValidation(t *testing.T) {
  dir := t.TempDir()
  _, err := Create(filepath.Join(dir, "empty.y4m"), Descriptor{Width: 0, Height: 10}, DefaultOptions())
  assert.Error(t, err)

  w, err := Create(filepath.Join(dir, "size.y4m"), Descriptor{Width: 8, Height: 8, FrameRate: 25}, DefaultOptions())
  require.NoError(t, err)
  err = w.WriteFrame(solidFrame(4, 4, color.NRGBA{1, 2, 3, 255}))
  assert.True(t, errors.Is(err, ErrFrameSize))
  assert.Equal(t, 0, w.FrameCount())
  require.NoError(t, w.Close())
}

func TestY4M(t *testing.T) {
  dir := t.TempDir()

  t.Run("round trip", func(t *testing.T) {
    path := filepath.Join(dir, "clip.y4m")
    frames := []*image.NRGBA{gradientFrame(32, 24, 1), gradientFrame(32, 24, 5), gradientFrame(32, 24, 9)}
    writeVideo(t, path, Descriptor{Width: 32, Height: 24, FrameRate: 25}, DefaultOptions(), frames)

    desc, decoded := readVideo(t, path)
    assert.Equal(t, 32, desc.Width)
    assert.Equal(t, 24, desc.Height)
    assert.Equal(t, 25, desc.FrameRate)
    require.Len(t, decoded, len(frames))
    for i := range frames {
      assert.LessOrEqual(t, maxPixelDiff(frames[i], decoded[i]), 3, "frame %d", i)
    }
  })

  t.Run("default frame rate", func(t *testing.T) {
    path := filepath.Join(dir, "rate.y4m")
    writeVideo(t, path, Descriptor{Width: 4, Height: 4}, DefaultOptions(), []*image.NRGBA{solidFrame(4, 4, color.NRGBA{9, 9, 9, 255})})
    desc, _ := readVideo(t, path)
    assert.Equal(t, DefaultFrameRate, desc.FrameRate)
  })

  t.Run("subsampled input", func(t *testing.T) {
    path := filepath.Join(dir, "c420.y4m")
    data := []byte("YUV4MPEG2 W4 H2 F30000:1001 Ip C420jpeg XCOLORRANGE=FULL\nFRAME\n")
    data = append(data, 100, 100, 100, 100, 100, 100, 100, 100)   // Y
    data = append(data, 128, 128)                                 // Cb
    data = append(data, 128, 128)                                 // Cr
    require.NoError(t, os.WriteFile(path, data, 0644))

    desc, decoded := readVideo(t, path)
    assert.Equal(t, 30, desc.FrameRate)
    require.Len(t, decoded, 1)
    assert.Equal(t, color.NRGBA{100, 100, 100, 255}, decoded[0].NRGBAAt(3, 1))
  })

  t.Run("limited range", func(t *testing.T) {
    for _, header := range []string{"YUV4MPEG2 W3 H1 F25:1 C444 XCOLORRANGE=LIMITED\n", "YUV4MPEG2 W3 H1 F25:1 C444\n"} {
      path := filepath.Join(dir, "limited.y4m")
      data := []byte(header + "FRAME\n")
      data = append(data, 16, 235, 126)     // Y
      data = append(data, 128, 128, 128)    // Cb
      data = append(data, 128, 128, 128)    // Cr
      require.NoError(t, os.WriteFile(path, data, 0644))

      _, decoded := readVideo(t, path)
      require.Len(t, decoded, 1)
      assert.Equal(t, color.NRGBA{0, 0, 0, 255}, decoded[0].NRGBAAt(0, 0), header)
      assert.Equal(t, color.NRGBA{255, 255, 255, 255}, decoded[0].NRGBAAt(1, 0), header)
      assert.Equal(t, color.NRGBA{128, 128, 128, 255}, decoded[0].NRGBAAt(2, 0), header)
    }
  })

  t.Run("truncated frame", func(t *testing.T) {
    path := filepath.Join(dir, "truncated.y4m")
    data := []byte("YUV4MPEG2 W2 H2 F25:1 C444\nFRAME\n")
    data = append(data, make([]byte, 12)...)
    data = append(data, []byte("FRAME\n")...)
    data = append(data, make([]byte, 5)...)
    require.NoError(t, os.WriteFile(path, data, 0644))

    r, err := Open(path)
    require.NoError(t, err)
    defer r.Close()
    _, err = r.ReadFrame()
    require.NoError(t, err)
    _, err = r.ReadFrame()
    assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
  })

  t.Run("invalid header", func(t *testing.T) {
    path := filepath.Join(dir, "invalid.y4m")
    require.NoError(t, os.WriteFile(path, []byte("not a video\n"), 0644))
    _, err := Open(path)
    assert.Error(t, err)
  })
}

func TestWebP(t *testing.T) {
  dir := t.TempDir()

  t.Run("lossless round trip keeps every frame", func(t *testing.T) {
    path := filepath.Join(dir, "clip.webp")
    frames := make([]*image.NRGBA, 5)
    for i := range frames {
      // identical frames must not be merged
      frames[i] = solidFrame(16, 12, color.NRGBA{200, 100, 50, 255})
    }
    frames[3] = gradientFrame(16, 12, 3)
    writeVideo(t, path, Descriptor{Width: 16, Height: 12, FrameRate: 30}, DefaultOptions(), frames)

    desc, decoded := readVideo(t, path)
    assert.Equal(t, Descriptor{Width: 16, Height: 12, FrameRate: 30, FrameCount: 5}, desc)
    require.Len(t, decoded, len(frames))
    for i := range frames {
      assert.Equal(t, frames[i].Pix, decoded[i].Pix, "frame %d", i)
    }
  })

  t.Run("lossy", func(t *testing.T) {
    path := filepath.Join(dir, "lossy.webp")
    frames := []*image.NRGBA{solidFrame(16, 16, color.NRGBA{120, 120, 120, 255}), solidFrame(16, 16, color.NRGBA{60, 60, 60, 255})}
    writeVideo(t, path, Descriptor{Width: 16, Height: 16, FrameRate: 10}, Options{Lossless: false, Quality: 90}, frames)

    desc, decoded := readVideo(t, path)
    assert.Equal(t, 10, desc.FrameRate)
    require.Len(t, decoded, 2)
    assert.LessOrEqual(t, maxPixelDiff(frames[1], decoded[1]), 8)
  })

  t.Run("frame rate conversion", func(t *testing.T) {
    for _, fps := range []int{1, 10, 24, 25, 30, 50} {
      assert.Equal(t, fps, webpFrameRate(webpFrameDuration(fps)), "fps %d", fps)
    }
    assert.Equal(t, DefaultFrameRate, webpFrameRate(0))
  })

  t.Run("invalid file", func(t *testing.T) {
    path := filepath.Join(dir, "invalid.webp")
    require.NoError(t, os.WriteFile(path, []byte("RIFF0000WEBPjunk"), 0644))
    _, err := Open(path)
    assert.Error(t, err)
  })
}
