/*
Package video provides sequential frame access to video containers.

Containers are identified by file extension. Each supported format registers a reader and a writer that
decode or encode frames one at a time in presentation order. Frames are always exchanged as image.NRGBA
with origin at (0, 0).

Light Corrector is released under the BSD 2-clause license. See LICENSE in the project's root folder for more details.
*/
package video

import (
  "errors"
  "fmt"
  "image"
  "path/filepath"
  "sort"
  "strings"
)

const (
  DefaultFrameRate  = 30
  DefaultQuality    = 90
)

var (
  ErrUnsupportedFormat  = errors.New("Unsupported video format")
  ErrFrameSize          = errors.New("Frame dimensions do not match the video dimensions")
)

// Descriptor describes the properties of a video stream.
type Descriptor struct {
  Width       int
  Height      int
  FrameRate   int   // frames per second
  FrameCount  int   // 0 if unknown
}

// Options controls how frames are encoded by a Writer.
type Options struct {
  Lossless  bool  // use lossless compression if supported by the container
  Quality   int   // quality of lossy compression in range [0, 100]
}

// Reader provides sequential access to the frames of a video.
type Reader interface {
  // Descriptor returns the properties of the video stream.
  Descriptor() Descriptor
  // ReadFrame decodes the next frame. Returns io.EOF if no more frames are available.
  ReadFrame() (*image.NRGBA, error)
  // Close releases all resources associated with the video.
  Close() error
}

// Writer encodes frames into a video container.
type Writer interface {
  // WriteFrame appends the given frame to the video. Frame dimensions must match the video dimensions.
  WriteFrame(img image.Image) error
  // FrameCount returns the number of frames written so far.
  FrameCount() int
  // Close finalizes the video container and releases all associated resources.
  Close() error
}

type formatType struct {
  name        string
  extensions  []string
  codec       func(opts Options) string
  open        func(path string) (Reader, error)
  create      func(path string, desc Descriptor, opts Options) (Writer, error)
}

var formatTypes = make(map[string]*formatType)


// registerFormat registers a video container for the given list of file extensions. It must be called by each
// container implementation once.
func registerFormat(f formatType) {
  for _, ext := range f.extensions {
    formatTypes[strings.ToLower(ext)] = &f
  }
}


// DefaultOptions returns the default encoding options.
func DefaultOptions() Options {
  return Options{Lossless: true, Quality: DefaultQuality}
}


// IsVideo returns whether the file extension of the given path refers to a supported video container.
func IsVideo(path string) bool {
  _, ok := formatTypes[strings.ToLower(filepath.Ext(path))]
  return ok
}


// Formats returns a sorted list of file extensions of all supported video containers.
func Formats() []string {
  list := make([]string, 0, len(formatTypes))
  for ext := range formatTypes {
    list = append(list, ext)
  }
  sort.Strings(list)
  return list
}


// Codec returns the codec identifier used when writing a video to the given path with the specified options.
func Codec(path string, opts Options) (string, error) {
  f, err := lookupFormat(path)
  if err != nil { return "", err }
  return f.codec(opts), nil
}


// Open opens the video at the given path for reading.
func Open(path string) (Reader, error) {
  f, err := lookupFormat(path)
  if err != nil { return nil, err }
  r, err := f.open(path)
  if err != nil { return nil, fmt.Errorf("%s: %v", f.name, err) }
  desc := r.Descriptor()
  if desc.Width <= 0 || desc.Height <= 0 {
    r.Close()
    return nil, fmt.Errorf("%s: invalid video dimensions: %dx%d", f.name, desc.Width, desc.Height)
  }
  return r, nil
}


// Create creates a new video at the given path for writing. Frame dimensions and frame rate are taken from desc.
// A frame rate of 0 is replaced by DefaultFrameRate.
func Create(path string, desc Descriptor, opts Options) (Writer, error) {
  f, err := lookupFormat(path)
  if err != nil { return nil, err }
  if desc.Width <= 0 || desc.Height <= 0 {
    return nil, fmt.Errorf("%s: invalid video dimensions: %dx%d", f.name, desc.Width, desc.Height)
  }
  if desc.FrameRate <= 0 { desc.FrameRate = DefaultFrameRate }
  if opts.Quality < 0 { opts.Quality = 0 }
  if opts.Quality > 100 { opts.Quality = 100 }
  w, err := f.create(path, desc, opts)
  if err != nil { return nil, fmt.Errorf("%s: %v", f.name, err) }
  return w, nil
}


// Used internally. Returns the registered format for the file extension of the given path.
func lookupFormat(path string) (*formatType, error) {
  ext := strings.ToLower(filepath.Ext(path))
  f, ok := formatTypes[ext]
  if !ok { return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext) }
  return f, nil
}

// Used internally. Checks whether img matches the dimensions of desc.
func checkFrameSize(img image.Image, desc Descriptor) error {
  if img == nil { return errors.New("No frame specified") }
  b := img.Bounds()
  if b.Dx() != desc.Width || b.Dy() != desc.Height {
    return fmt.Errorf("%w: %dx%d, expected %dx%d", ErrFrameSize, b.Dx(), b.Dy(), desc.Width, desc.Height)
  }
  return nil
}
