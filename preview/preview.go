/*
Package preview holds the presentation state of corrected images: the most recent correction result and
preview-sized renditions of it.

Light Corrector is released under the BSD 2-clause license. See LICENSE in the project's root folder for more details.
*/
package preview

import (
  "image"
  "image/color"
  "image/draw"

  "github.com/disintegration/imaging"

  "github.com/InfinityTools/lightcorrect/sequencer"
)

// Default size of a preview panel.
const (
  DefaultWidth  = 400
  DefaultHeight = 400
)

// Horizontal space between the panels of a composed preview.
const PanelGap = 8

// Background color of composed previews.
var Background = color.NRGBA{0, 0, 0, 255}

// Presenter keeps track of the last correction result and renders previews of it.
type Presenter struct {
  maxWidth  int
  maxHeight int
  last      *sequencer.CorrectionResult
}


// NewPresenter creates a presenter with the given panel size. Non-positive dimensions are replaced by the defaults.
func NewPresenter(maxWidth, maxHeight int) *Presenter {
  if maxWidth <= 0 { maxWidth = DefaultWidth }
  if maxHeight <= 0 { maxHeight = DefaultHeight }
  return &Presenter{maxWidth: maxWidth, maxHeight: maxHeight}
}


// GetPanelSize returns the maximum dimensions of a single preview panel.
func (p *Presenter) GetPanelSize() (width, height int) {
  return p.maxWidth, p.maxHeight
}


// Show makes the given result the current one. Specify nil to clear the presenter.
func (p *Presenter) Show(result *sequencer.CorrectionResult) {
  p.last = result
}


// Last returns the current correction result. Returns nil if no result has been shown yet.
func (p *Presenter) Last() *sequencer.CorrectionResult {
  return p.last
}


// Original returns the original image of the current result scaled to the panel size.
func (p *Presenter) Original() *image.NRGBA {
  if p.last == nil || p.last.Original == nil { return nil }
  return ResizeToFit(p.last.Original, p.maxWidth, p.maxHeight)
}


// Corrected returns the corrected image of the current result scaled to the panel size.
func (p *Presenter) Corrected() *image.NRGBA {
  if p.last == nil || p.last.Corrected == nil { return nil }
  return ResizeToFit(p.last.Corrected, p.maxWidth, p.maxHeight)
}


// Compose returns the scaled original and corrected images of the current result side by side, separated by
// PanelGap pixels. Returns nil if no result is available.
func (p *Presenter) Compose() *image.NRGBA {
  left, right := p.Original(), p.Corrected()
  if left == nil || right == nil { return nil }

  lb, rb := left.Bounds(), right.Bounds()
  height := lb.Dy()
  if rb.Dy() > height { height = rb.Dy() }
  out := image.NewNRGBA(image.Rect(0, 0, lb.Dx() + PanelGap + rb.Dx(), height))
  draw.Draw(out, out.Bounds(), &image.Uniform{Background}, image.ZP, draw.Src)
  draw.Draw(out, image.Rect(0, (height - lb.Dy()) / 2, lb.Dx(), height), left, lb.Min, draw.Src)
  x := lb.Dx() + PanelGap
  draw.Draw(out, image.Rect(x, (height - rb.Dy()) / 2, x + rb.Dx(), height), right, rb.Min, draw.Src)
  return out
}


// ResizeToFit scales img up or down to the largest size that fits into maxWidth x maxHeight while preserving
// the aspect ratio. Images that already have this size are returned as an unscaled copy.
func ResizeToFit(img image.Image, maxWidth, maxHeight int) *image.NRGBA {
  if img == nil { return nil }
  b := img.Bounds()
  w, h := b.Dx(), b.Dy()
  if w <= 0 || h <= 0 { return imaging.Clone(img) }

  var newWidth, newHeight int
  if maxWidth * h <= maxHeight * w {
    newWidth, newHeight = maxWidth, h * maxWidth / w
  } else {
    newWidth, newHeight = w * maxHeight / h, maxHeight
  }
  if newWidth < 1 { newWidth = 1 }
  if newHeight < 1 { newHeight = 1 }

  switch {
    case newWidth == w && newHeight == h:
      return imaging.Clone(img)
    case newWidth > w:
      return imaging.Resize(img, newWidth, newHeight, imaging.Linear)
    default:
      return imaging.Resize(img, newWidth, newHeight, imaging.Box)
  }
}
