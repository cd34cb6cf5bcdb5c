//go:build gst

package video
// Compressed video containers by GStreamer. Requires the GStreamer runtime with the libav plugins.

import (
  "errors"
  "fmt"
  "image"
  "io"
  "path/filepath"
  "strings"
  "time"

  "github.com/InfinityTools/go-logging"
  "github.com/tinyzimmer/go-gst/gst"
  "github.com/tinyzimmer/go-gst/gst/app"
)

const (
  CodecMPEG4 = "mp4v"

  gstEOSTimeout = 30 * time.Second
)

var gstMuxers = map[string]string{
  ".mp4": "mp4mux",
  ".mov": "qtmux",
  ".mkv": "matroskamux",
  ".avi": "avimux",
}

func init() {
  registerFormat(formatType{
    name:       "GStreamer",
    extensions: []string{".mp4", ".mov", ".mkv", ".avi"},
    codec:      func(opts Options) string { return CodecMPEG4 },
    open:       openGst,
    create:     createGst,
  })
}

type gstReader struct {
  pipeline  *gst.Pipeline
  sink      *app.Sink
  desc      Descriptor
  pending   *image.NRGBA
  pos       int
}

type gstWriter struct {
  pipeline  *gst.Pipeline
  src       *app.Source
  desc      Descriptor
  duration  time.Duration
  count     int
}


func openGst(path string) (Reader, error) {
  gst.Init(nil)
  launch := fmt.Sprintf("filesrc location=%q ! decodebin ! videoconvert ! video/x-raw,format=RGBA ! appsink name=sink sync=false", path)
  pipeline, err := gst.NewPipelineFromString(launch)
  if err != nil { return nil, fmt.Errorf("Creating pipeline: %v", err) }
  elem, err := pipeline.GetElementByName("sink")
  if err != nil { return nil, fmt.Errorf("Creating pipeline: %v", err) }

  r := gstReader{pipeline: pipeline, sink: app.SinkFromElement(elem)}
  if err := pipeline.SetState(gst.StatePlaying); err != nil {
    r.Close()
    return nil, err
  }

  // dimensions and frame rate are only known after the first sample has been negotiated
  sample := r.sink.PullSample()
  if sample == nil {
    err := gstBusError(pipeline)
    r.Close()
    if err == nil { err = errors.New("No video frames found") }
    return nil, err
  }
  r.desc.FrameRate = DefaultFrameRate
  if s := sample.GetCaps().GetStructureAt(0); s != nil {
    if v, err := s.GetValue("width"); err == nil {
      if n, ok := v.(int); ok { r.desc.Width = n }
    }
    if v, err := s.GetValue("height"); err == nil {
      if n, ok := v.(int); ok { r.desc.Height = n }
    }
    if v, err := s.GetValue("framerate"); err == nil {
      if f, ok := v.(*gst.FractionValue); ok && f.Denom() > 0 && f.Num() > 0 {
        r.desc.FrameRate = (f.Num() + f.Denom() / 2) / f.Denom()
      }
    }
  }
  r.pending, err = gstSampleImage(sample, r.desc)
  if err != nil {
    r.Close()
    return nil, err
  }
  return &r, nil
}

func (r *gstReader) Descriptor() Descriptor {
  return r.desc
}

func (r *gstReader) ReadFrame() (*image.NRGBA, error) {
  if r.pipeline == nil { return nil, errors.New("Video is closed") }
  if r.pending != nil {
    img := r.pending
    r.pending = nil
    r.pos++
    return img, nil
  }
  sample := r.sink.PullSample()
  if sample == nil {
    if r.sink.IsEOS() { return nil, io.EOF }
    if err := gstBusError(r.pipeline); err != nil { return nil, fmt.Errorf("Frame %d: %v", r.pos, err) }
    return nil, io.EOF
  }
  img, err := gstSampleImage(sample, r.desc)
  if err != nil { return nil, fmt.Errorf("Frame %d: %v", r.pos, err) }
  r.pos++
  return img, nil
}

func (r *gstReader) Close() error {
  if r.pipeline == nil { return nil }
  err := r.pipeline.SetState(gst.StateNull)
  r.pipeline, r.sink, r.pending = nil, nil, nil
  return err
}


func createGst(path string, desc Descriptor, opts Options) (Writer, error) {
  muxer, ok := gstMuxers[strings.ToLower(filepath.Ext(path))]
  if !ok { return nil, ErrUnsupportedFormat }
  if opts.Lossless { logging.Warnf("Lossless encoding is not supported by %s. Using quality %d.\n", CodecMPEG4, opts.Quality) }

  gst.Init(nil)
  bitrate := gstBitrate(desc, opts.Quality)
  launch := fmt.Sprintf("appsrc name=src format=time ! videoconvert ! avenc_mpeg4 bitrate=%d ! %s ! filesink location=%q",
                        bitrate, muxer, path)
  pipeline, err := gst.NewPipelineFromString(launch)
  if err != nil { return nil, fmt.Errorf("Creating pipeline: %v", err) }
  elem, err := pipeline.GetElementByName("src")
  if err != nil { return nil, fmt.Errorf("Creating pipeline: %v", err) }

  w := gstWriter{pipeline: pipeline, src: app.SrcFromElement(elem), desc: desc,
                 duration: time.Second / time.Duration(desc.FrameRate)}
  w.src.SetCaps(gst.NewCapsFromString(fmt.Sprintf("video/x-raw,format=RGBA,width=%d,height=%d,framerate=%d/1",
                                                  desc.Width, desc.Height, desc.FrameRate)))
  if err := pipeline.SetState(gst.StatePlaying); err != nil {
    pipeline.SetState(gst.StateNull)
    return nil, err
  }
  return &w, nil
}

func (w *gstWriter) WriteFrame(img image.Image) error {
  if w.pipeline == nil { return errors.New("Video is closed") }
  if err := checkFrameSize(img, w.desc); err != nil { return err }

  data := make([]byte, w.desc.Width * w.desc.Height * 4)
  b := img.Bounds()
  if src, ok := img.(*image.NRGBA); ok {
    for y := 0; y < w.desc.Height; y++ {
      ofs := src.PixOffset(b.Min.X, b.Min.Y + y)
      copy(data[y*w.desc.Width*4:(y+1)*w.desc.Width*4], src.Pix[ofs:ofs+w.desc.Width*4])
    }
  } else {
    dst := image.NRGBA{Pix: data, Stride: w.desc.Width * 4, Rect: image.Rect(0, 0, w.desc.Width, w.desc.Height)}
    for y := 0; y < w.desc.Height; y++ {
      for x := 0; x < w.desc.Width; x++ {
        dst.Set(x, y, img.At(b.Min.X + x, b.Min.Y + y))
      }
    }
  }

  buffer := gst.NewBufferFromBytes(data)
  buffer.SetPresentationTimestamp(time.Duration(w.count) * w.duration)
  buffer.SetDuration(w.duration)
  if ret := w.src.PushBuffer(buffer); ret != gst.FlowOK {
    if err := gstBusError(w.pipeline); err != nil { return fmt.Errorf("Frame %d: %v", w.count, err) }
    return fmt.Errorf("Frame %d: %v", w.count, ret)
  }
  w.count++
  return nil
}

func (w *gstWriter) FrameCount() int {
  return w.count
}

// Close signals the end of stream and waits until the muxer has finalized the container.
func (w *gstWriter) Close() error {
  if w.pipeline == nil { return nil }
  var err error
  w.src.EndStream()
  bus := w.pipeline.GetPipelineBus()
  deadline := time.Now().Add(gstEOSTimeout)
loop:
  for time.Now().Before(deadline) {
    msg := bus.TimedPop(100 * time.Millisecond)
    if msg == nil { continue }
    switch msg.Type() {
      case gst.MessageEOS:
        break loop
      case gst.MessageError:
        err = msg.ParseError()
        break loop
    }
  }
  if err2 := w.pipeline.SetState(gst.StateNull); err == nil { err = err2 }
  w.pipeline, w.src = nil, nil
  return err
}


// Used internally. Copies the RGBA payload of a sample into a new image.
func gstSampleImage(sample *gst.Sample, desc Descriptor) (*image.NRGBA, error) {
  buffer := sample.GetBuffer()
  if buffer == nil { return nil, errors.New("Empty sample") }
  mapInfo := buffer.Map(gst.MapRead)
  defer buffer.Unmap()
  data := mapInfo.Bytes()
  size := desc.Width * desc.Height * 4
  if len(data) < size { return nil, fmt.Errorf("Incomplete frame data: %d bytes, expected %d", len(data), size) }
  img := image.NewNRGBA(image.Rect(0, 0, desc.Width, desc.Height))
  copy(img.Pix, data[:size])
  return img, nil
}

// Used internally. Returns the first error message posted on the pipeline bus, if any.
func gstBusError(pipeline *gst.Pipeline) error {
  bus := pipeline.GetPipelineBus()
  for {
    msg := bus.TimedPop(10 * time.Millisecond)
    if msg == nil { return nil }
    if msg.Type() == gst.MessageError { return msg.ParseError() }
  }
}

// Used internally. Maps a quality in range [0, 100] to a bitrate in bits per second.
func gstBitrate(desc Descriptor, quality int) int {
  bpp := 0.02 + 0.28 * float64(quality) / 100.0
  return int(float64(desc.Width * desc.Height * desc.FrameRate) * bpp)
}
