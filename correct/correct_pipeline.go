/*
Package correct provides color cast and lighting correction of images.

Correction is performed by a fixed chain of filters: automatic white balance ("whitebalance") followed by
contrast limited adaptive histogram equalization of the lightness ("clahe"). Both filters operate in Lab
space and return new images without modifying their input.

Light Corrector is released under the BSD 2-clause license. See LICENSE in the project's root folder for more details.
*/
package correct

import (
  "fmt"
  "image"
  "runtime"
  "strings"
  "sync"

  "github.com/InfinityTools/go-logging"
  "github.com/pbenner/threadpool"
)

// Pipeline applies white balance and contrast equalization in that order.
type Pipeline struct {
  filters       []Filter
  multithreaded bool
}


// NewPipeline creates a correction pipeline with default filter options.
func NewPipeline() *Pipeline {
  p := Pipeline{filters: make([]Filter, 0, 2)}
  p.filters = append(p.filters, CreateFilter(FilterNameWhiteBalance))
  p.filters = append(p.filters, CreateFilter(FilterNameClahe))
  return &p
}


// GetFilterLength returns the number of filters in the pipeline.
func (p *Pipeline) GetFilterLength() int {
  return len(p.filters)
}

// GetFilter returns the filter of the given name. Returns nil if the pipeline doesn't contain the filter.
func (p *Pipeline) GetFilter(name string) Filter {
  name = strings.ToLower(name)
  for _, f := range p.filters {
    if f.GetName() == name { return f }
  }
  return nil
}

// SetFilterOption sets a single filter option from a definition of the form "name:key=value".
func (p *Pipeline) SetFilterOption(def string) error {
  pos := strings.Index(def, ":")
  if pos < 0 { return fmt.Errorf("Filter option %q: missing filter name", def) }
  name := strings.TrimSpace(def[:pos])
  kv := def[pos+1:]
  pos = strings.Index(kv, "=")
  if pos < 0 { return fmt.Errorf("Filter option %q: missing value", def) }
  f := p.GetFilter(name)
  if f == nil { return fmt.Errorf("Filter option %q: unknown filter %q", def, name) }
  return f.SetOption(strings.TrimSpace(kv[:pos]), strings.TrimSpace(kv[pos+1:]))
}


// GetMultiThreaded returns whether CorrectFrames processes frames in parallel.
func (p *Pipeline) GetMultiThreaded() bool {
  return p.multithreaded
}

// SetMultiThreaded sets whether CorrectFrames processes frames in parallel.
func (p *Pipeline) SetMultiThreaded(set bool) {
  p.multithreaded = set
}


// Correct applies the whole filter chain to the given image and returns the corrected image.
// The returned image has the same dimensions as the source image.
func (p *Pipeline) Correct(img image.Image) *image.NRGBA {
  src := ToNRGBA(img)
  if len(p.filters) == 0 || src.Bounds().Empty() { return CloneImage(src) }

  out := src
  for _, f := range p.filters {
    out = f.Process(out)
  }
  return out
}


// CorrectFrames applies Correct to each of the given frames. The returned list stores the corrected frames
// in the same order as the source frames, regardless of whether they were processed in parallel.
func (p *Pipeline) CorrectFrames(frames []*image.NRGBA) ([]*image.NRGBA, error) {
  return p.CorrectBatch(frames, p.multithreaded)
}

// CorrectBatch works like CorrectFrames, but the parallel argument overrides the multithreading state of the
// pipeline for this call only.
func (p *Pipeline) CorrectBatch(frames []*image.NRGBA, parallel bool) (out []*image.NRGBA, err error) {
  out = make([]*image.NRGBA, len(frames))
  if !parallel || len(frames) < 2 {
    for idx, frame := range frames {
      out[idx] = p.Correct(frame)
    }
    return
  }

  numThreads := runtime.NumCPU()
  if numThreads > len(frames) { numThreads = len(frames) }
  pool := threadpool.NewThreadPool(numThreads, len(frames))
  defer pool.Stop()
  g := pool.NewJobGroup()
  var m sync.Mutex
  progressIdx := 0
  for frameIdx, inFrame := range frames {
    idx := frameIdx
    frm := inFrame
    err = pool.AddJob(g, func(pool threadpool.ThreadPool, erf func() error) error {
      if erf() != nil { return nil }
      out[idx] = p.Correct(frm)
      func() {
        m.Lock()
        defer m.Unlock()
        progressIdx++
        logging.Logf("Corrected frame %d of %d in batch\n", progressIdx, len(frames))
      }()
      return nil
    })
    if err != nil { break }
  }
  if err2 := pool.Wait(g); err2 != nil && err == nil { err = err2 }
  if err != nil { err = fmt.Errorf("Parallel correction failed: %v", err) }
  return
}
