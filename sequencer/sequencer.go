/*
Package sequencer applies a correction pipeline to single images or to every frame of a video.

Light Corrector is released under the BSD 2-clause license. See LICENSE in the project's root folder for more details.
*/
package sequencer

import (
  "context"
  "image"
  "io"
  "os"
  "runtime"

  "github.com/InfinityTools/go-logging"
  "github.com/google/uuid"

  "github.com/InfinityTools/lightcorrect/correct"
  "github.com/InfinityTools/lightcorrect/graphics"
  "github.com/InfinityTools/lightcorrect/video"
)

// Options controls how videos are processed.
type Options struct {
  Threaded  bool            // correct frames of a batch in parallel
  BatchSize int             // number of frames per batch in threaded mode
  Strict    bool            // abort with DecodeError on mid-stream read errors instead of truncating the video
  Video     video.Options   // encoding options of the destination video
}

// CorrectionResult pairs a decoded image with its corrected version.
type CorrectionResult struct {
  Path      string
  Original  *image.NRGBA
  Corrected *image.NRGBA
  TraceID   string
}

// VideoResult describes the outcome of a video correction.
type VideoResult struct {
  Descriptor    video.Descriptor  // source properties, FrameCount is set to the number of frames written
  FramesWritten int
  Truncated     bool              // source ended with a read error
  TraceID       string
}

// Sequencer drives a correction pipeline over images and video frames.
type Sequencer struct {
  pipeline  *correct.Pipeline
  opts      Options
}


// DefaultOptions returns the default options for video processing.
func DefaultOptions() Options {
  return Options{Threaded: false, BatchSize: runtime.NumCPU(), Strict: false, Video: video.DefaultOptions()}
}


// New creates a sequencer for the given pipeline. A nil pipeline is replaced by a new default pipeline.
// Specify nil for opts to use default options. The pipeline itself is not modified.
func New(p *correct.Pipeline, opts *Options) *Sequencer {
  if p == nil { p = correct.NewPipeline() }
  s := Sequencer{pipeline: p, opts: DefaultOptions()}
  if opts != nil { s.opts = *opts }
  if s.opts.BatchSize < 1 { s.opts.BatchSize = 1 }
  return &s
}


// GetPipeline returns the correction pipeline used by the sequencer.
func (s *Sequencer) GetPipeline() *correct.Pipeline {
  return s.pipeline
}


// GetOptions returns the options used by the sequencer.
func (s *Sequencer) GetOptions() Options {
  return s.opts
}


// ProcessImage decodes the image at the given path and corrects it. Returns a DecodeError if the image cannot be
// decoded.
func (s *Sequencer) ProcessImage(path string) (*CorrectionResult, error) {
  img, err := graphics.Load(path)
  if err != nil { return nil, &DecodeError{Path: path, Err: err} }

  result := CorrectionResult{Path: path, Original: img, TraceID: uuid.New().String()}
  logging.Logf("Correcting image %q\n", path)
  result.Corrected = s.pipeline.Correct(img)
  return &result, nil
}


// ProcessVideo corrects every frame of the video src and writes them in source order to the video dst.
// Frame size and frame rate are taken from the source video.
//
// Returns a DecodeError if src cannot be opened, in which case dst is never created. Returns an EncodeError if
// dst cannot be created or written. A read error in the middle of the video ends the video with all frames written
// so far, unless strict mode is enabled. Cancellation of ctx is checked between frames and returns the context
// error. The returned VideoResult is valid for every error that occurs after dst has been created.
//
// A source without a single readable frame returns a DecodeError wrapping ErrNoFrames. Whenever an error is
// returned before the first frame has been written, dst is removed again.
func (s *Sequencer) ProcessVideo(ctx context.Context, src, dst string) (result *VideoResult, err error) {
  if ctx == nil { ctx = context.Background() }

  reader, err := video.Open(src)
  if err != nil { return nil, &DecodeError{Path: src, Err: err} }
  defer reader.Close()

  desc := reader.Descriptor()
  writer, err := video.Create(dst, desc, s.opts.Video)
  if err != nil { return nil, &EncodeError{Path: dst, Err: err} }
  result = &VideoResult{Descriptor: desc, TraceID: uuid.New().String()}
  defer func() {
    if err2 := writer.Close(); err2 != nil && err == nil { err = &EncodeError{Path: dst, Err: err2} }
    result.FramesWritten = writer.FrameCount()
    result.Descriptor.FrameCount = result.FramesWritten
    if err != nil && result.FramesWritten == 0 {
      if err2 := os.Remove(dst); err2 != nil && !os.IsNotExist(err2) {
        logging.Warnf("Could not remove incomplete video %q: %v\n", dst, err2)
      }
    }
  }()

  codec, _ := video.Codec(dst, s.opts.Video)
  logging.Logf("Correcting video %q (%dx%d, %d fps) into %q (%s)\n", src, desc.Width, desc.Height, desc.FrameRate, dst, codec)

  batchSize := 1
  if s.opts.Threaded { batchSize = s.opts.BatchSize }
  batch := make([]*image.NRGBA, 0, batchSize)
  for eos := false; !eos; {
    if err = ctx.Err(); err != nil { return }

    batch = batch[:0]
    for len(batch) < batchSize {
      frame, err2 := reader.ReadFrame()
      if err2 == io.EOF { eos = true; break }
      if err2 != nil {
        if s.opts.Strict { err = &DecodeError{Path: src, Err: err2}; return }
        logging.Warnf("Frame %d of %q could not be read, truncating video: %v\n", writer.FrameCount() + len(batch), src, err2)
        result.Truncated = true
        eos = true
        break
      }
      batch = append(batch, frame)
    }
    if len(batch) == 0 { break }

    frames, err2 := s.pipeline.CorrectBatch(batch, s.opts.Threaded)
    if err2 != nil { err = err2; return }
    for _, frame := range frames {
      if err2 = writer.WriteFrame(frame); err2 != nil { err = &EncodeError{Path: dst, Err: err2}; return }
    }
    logging.Logf("Frames written: %d\n", writer.FrameCount())
  }

  if writer.FrameCount() == 0 { err = &DecodeError{Path: src, Err: ErrNoFrames} }
  return
}
