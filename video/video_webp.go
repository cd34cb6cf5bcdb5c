package video
// Animated WebP container.

import (
  "errors"
  "fmt"
  "image"
  "io"
  "math"
  "os"
  "time"

  // registers the VP8/VP8L frame codecs used by the animation package
  _ "github.com/deepteams/webp"
  "github.com/deepteams/webp/animation"
)

const (
  CodecWebPLossless = "VP8L"
  CodecWebPLossy    = "VP8"
)

func init() {
  registerFormat(formatType{
    name:       "WebP",
    extensions: []string{".webp"},
    codec:      webpCodec,
    open:       openWebP,
    create:     createWebP,
  })
}

type webpReader struct {
  anim  *animation.Animation
  dec   *animation.AnimDecoder
  desc  Descriptor
  pos   int
}

type webpWriter struct {
  file      *os.File
  enc       *animation.AnimEncoder
  desc      Descriptor
  opts      Options
  duration  time.Duration
  count     int
}


func webpCodec(opts Options) string {
  if opts.Lossless { return CodecWebPLossless }
  return CodecWebPLossy
}

// Used internally. Frame durations are converted into frames per second, rounded to the nearest integer.
func webpFrameRate(d time.Duration) int {
  if d <= 0 { return DefaultFrameRate }
  fps := int(math.Round(float64(time.Second) / float64(d)))
  if fps < 1 { fps = 1 }
  return fps
}

// Used internally. Returns the frame duration for the given frame rate, rounded to full milliseconds.
func webpFrameDuration(fps int) time.Duration {
  if fps <= 0 { fps = DefaultFrameRate }
  ms := int(math.Round(1000.0 / float64(fps)))
  if ms < 1 { ms = 1 }
  return time.Duration(ms) * time.Millisecond
}


func openWebP(path string) (Reader, error) {
  data, err := os.ReadFile(path)
  if err != nil { return nil, err }
  anim, err := animation.DecodeBytes(data)
  if err != nil { return nil, err }
  if len(anim.Frames) == 0 { return nil, animation.ErrNoFrames }
  if animation.FrameDecoderFunc == nil { return nil, animation.ErrNoDecoder }

  r := webpReader{anim: anim, dec: animation.NewAnimDecoder(anim)}
  r.desc = Descriptor{Width: anim.CanvasWidth,
                      Height: anim.CanvasHeight,
                      FrameRate: webpFrameRate(anim.Frames[0].Duration),
                      FrameCount: len(anim.Frames)}
  return &r, nil
}

func (r *webpReader) Descriptor() Descriptor {
  return r.desc
}

// ReadFrame decodes frame bitstreams on demand and releases them once the frame is composed onto the canvas.
func (r *webpReader) ReadFrame() (*image.NRGBA, error) {
  if r.dec == nil { return nil, errors.New("Video is closed") }
  if !r.dec.HasNext() { return nil, io.EOF }

  f := &r.anim.Frames[r.pos]
  if f.Image == nil {
    img, err := animation.FrameDecoderFunc(f.BitstreamData, f.AlphaData)
    if err != nil { return nil, fmt.Errorf("Frame %d: %v", r.pos, err) }
    f.Image = img
  }
  canvas, _, err := r.dec.NextFrame()
  if err != nil { return nil, fmt.Errorf("Frame %d: %v", r.pos, err) }

  f.Image, f.BitstreamData, f.AlphaData = nil, nil, nil
  r.pos++
  return canvas, nil
}

func (r *webpReader) Close() error {
  r.anim, r.dec = nil, nil
  return nil
}


func createWebP(path string, desc Descriptor, opts Options) (Writer, error) {
  if animation.FrameEncoderFunc == nil { return nil, errors.New("No frame encoder available") }
  file, err := os.Create(path)
  if err != nil { return nil, err }
  w := webpWriter{file: file, desc: desc, opts: opts, duration: webpFrameDuration(desc.FrameRate)}
  w.enc = animation.NewEncoder(file, desc.Width, desc.Height, &animation.EncodeOptions{
    Quality:  opts.Quality,
    Lossless: opts.Lossless,
  })
  return &w, nil
}

// WriteFrame encodes every frame as a separate full-canvas keyframe. Identical consecutive frames are not merged.
func (w *webpWriter) WriteFrame(img image.Image) error {
  if w.enc == nil { return errors.New("Video is closed") }
  if err := checkFrameSize(img, w.desc); err != nil { return err }

  data, err := animation.FrameEncoderFunc(img, w.opts.Lossless, w.opts.Quality)
  if err != nil { return fmt.Errorf("Frame %d: %v", w.count, err) }
  err = w.enc.AddRawFrame(data, w.duration, 0, 0, animation.BlendNone, animation.DisposeNone)
  if err != nil { return fmt.Errorf("Frame %d: %v", w.count, err) }
  w.count++
  return nil
}

func (w *webpWriter) FrameCount() int {
  return w.count
}

func (w *webpWriter) Close() error {
  if w.enc == nil { return nil }
  var err error
  if w.count > 0 {
    err = w.enc.Close()
  } else {
    err = errors.New("No frames written")
  }
  if err2 := w.file.Close(); err == nil { err = err2 }
  w.enc = nil
  return err
}
