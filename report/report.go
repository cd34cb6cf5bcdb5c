/*
Package report provides diagnostic statistics and plots of corrected images.

Light Corrector is released under the BSD 2-clause license. See LICENSE in the project's root folder for more details.
*/
package report

import (
  "errors"
  "fmt"
  "image"
  "image/color"
  "math"

  "gonum.org/v1/gonum/stat"
  "gonum.org/v1/plot"
  "gonum.org/v1/plot/plotter"
  "gonum.org/v1/plot/vg"

  "github.com/InfinityTools/lightcorrect/correct"
)

// Size of generated plots.
const (
  PlotWidth   = 8 * vg.Inch
  PlotHeight  = 4 * vg.Inch
)

// ChannelStats contains mean and standard deviation of a single Lab channel.
type ChannelStats struct {
  Mean    float64
  StdDev  float64
}

// Stats contains the channel statistics of an image in Lab space.
type Stats struct {
  L ChannelStats
  A ChannelStats
  B ChannelStats
}


// Analyze computes the Lab channel statistics of the given image. Returns zero statistics for empty images.
func Analyze(img image.Image) Stats {
  var s Stats
  if img == nil || img.Bounds().Empty() { return s }

  lab := correct.ToLab(img)
  s.L = channelStats(lab.L)
  s.A = channelStats(lab.A)
  s.B = channelStats(lab.B)
  return s
}


// Cast returns the distance of the mean chroma from the achromatic point. A neutral image has a cast of 0.
func (s Stats) Cast() float64 {
  return math.Hypot(s.A.Mean - correct.LabNeutral, s.B.Mean - correct.LabNeutral)
}


func (s Stats) String() string {
  return fmt.Sprintf("L=%.1f±%.1f, a=%.1f±%.1f, b=%.1f±%.1f, cast=%.2f",
                     s.L.Mean, s.L.StdDev, s.A.Mean, s.A.StdDev, s.B.Mean, s.B.StdDev, s.Cast())
}


// LightnessHistogram returns the relative frequency of every lightness value of the given image.
func LightnessHistogram(img image.Image) []float64 {
  hist := make([]float64, 256)
  if img == nil || img.Bounds().Empty() { return hist }

  lab := correct.ToLab(img)
  for _, v := range lab.L {
    hist[v]++
  }
  total := float64(len(lab.L))
  for i := range hist {
    hist[i] /= total
  }
  return hist
}


// PlotLightness writes a plot of the lightness histograms of the original and the corrected image to the given
// path. The image format is determined by the file extension.
func PlotLightness(path string, original, corrected image.Image) error {
  if original == nil || corrected == nil { return errors.New("No image specified") }

  p := plot.New()
  p.Title.Text = "Lightness distribution"
  p.X.Label.Text = "Lightness"
  p.Y.Label.Text = "Frequency"
  p.X.Min = 0
  p.X.Max = 255

  series := []struct {
    label string
    img   image.Image
    color color.Color
  }{
    {fmt.Sprintf("Original (%v)", Analyze(original)), original, color.RGBA{R: 200, G: 60, B: 40, A: 255}},
    {fmt.Sprintf("Corrected (%v)", Analyze(corrected)), corrected, color.RGBA{R: 40, G: 90, B: 200, A: 255}},
  }
  for _, item := range series {
    hist := LightnessHistogram(item.img)
    pts := make(plotter.XYs, len(hist))
    for i, v := range hist {
      pts[i] = plotter.XY{X: float64(i), Y: v}
    }
    line, err := plotter.NewLine(pts)
    if err != nil { return err }
    line.Color = item.color
    line.Width = vg.Points(1)
    p.Add(line)
    p.Legend.Add(item.label, line)
  }
  p.Legend.Top = true
  p.Legend.Left = false

  return p.Save(PlotWidth, PlotHeight, path)
}


// Used internally. Returns mean and standard deviation of the given channel data.
func channelStats(data []byte) ChannelStats {
  values := make([]float64, len(data))
  for i, v := range data {
    values[i] = float64(v)
  }
  mean, std := stat.MeanStdDev(values, nil)
  if len(values) < 2 { std = 0 }
  return ChannelStats{Mean: mean, StdDev: std}
}
