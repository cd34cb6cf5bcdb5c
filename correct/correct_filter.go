package correct
// Provides base functionality for processing correction filters.

import (
  "fmt"
  "image"
  "image/draw"
  "strconv"
  "strings"
)

// Filter provides functions for applying a color or lighting correction to individual images.
type Filter interface {
  // GetName returns the name of the filter for identification purposes.
  GetName() string
  // GetOption returns the option of given name. Content of return value is filter specific.
  GetOption(key string) interface{}
  // SetOption adds or updates an option of the given key to the filter. Return value indicates whether option is valid.
  SetOption(key, value string) error
  // Process applies the filter effect to the specified image and returns the transformed image.
  // The source image is never modified.
  Process(img *image.NRGBA) *image.NRGBA
}

type optionsMap map[string]interface{}

type filterType struct {
  name    string
  create  func() Filter
}

type filterMap map[string]filterType


var filterTypes filterMap = make(filterMap)


// CreateFilter creates a new filter of the given type. Returns nil if the filter does not exist.
func CreateFilter(filterName string) Filter {
  f, ok := filterTypes[strings.ToLower(filterName)]
  if !ok { return nil }
  return f.create()
}


// registerFilter registers a Filter for use by the pipeline. It must be called by each filter once.
func registerFilter(name string, create func() Filter) {
  filterTypes[name] = filterType{name, create}
}


// CloneImage creates a copy of the specified image and returns it as image.NRGBA.
// Always returns a valid image object.
func CloneImage(img image.Image) *image.NRGBA {
  if img == nil { return image.NewNRGBA(image.Rect(0, 0, 1, 1)) }

  b := img.Bounds()
  imgOut := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
  if src, ok := img.(*image.NRGBA); ok {
    for y := 0; y < b.Dy(); y++ {
      ofsIn := src.PixOffset(b.Min.X, b.Min.Y + y)
      ofsOut := y * imgOut.Stride
      copy(imgOut.Pix[ofsOut:ofsOut+b.Dx()*4], src.Pix[ofsIn:ofsIn+b.Dx()*4])
    }
  } else {
    draw.Draw(imgOut, imgOut.Bounds(), img, b.Min, draw.Src)
  }
  return imgOut
}

// ToNRGBA converts the given image into an image of image.NRGBA type with origin at (0, 0).
// Images that already satisfy these conditions are returned as is.
func ToNRGBA(img image.Image) *image.NRGBA {
  if img == nil { return nil }
  if imgNRGBA, ok := img.(*image.NRGBA); ok && imgNRGBA.Bounds().Min == image.ZP { return imgNRGBA }
  return CloneImage(img)
}


// Converts string into float in range [min, max] (both inclusive).
func parseFloatRange(value string, min, max float64) (float64, error) {
  if max < min { min, max = max, min }
  ret, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
  if err != nil { return 0, fmt.Errorf("not a float: %s", value) }
  if ret < min || ret > max { return 0, fmt.Errorf("not in range [%v, %v]: %s", min, max, value) }
  return ret, nil
}

// Converts string with comma-separated values into sequence of ints.
func parseIntSeq(value string) ([]int, error) {
  seq := make([]int, 0)
  s := strings.Split(value, ",")
  for idx, item := range s {
    item = strings.TrimSpace(item)
    n, err := strconv.ParseInt(item, 0, 0)
    if err != nil { return seq, fmt.Errorf("item %d not an int: %s", idx, item) }
    seq = append(seq, int(n))
  }
  return seq, nil
}


// Rounds and saturates the given value into the range [0, 255].
func clampByte(v float64) byte {
  if v <= 0.0 { return 0 }
  if v >= 255.0 { return 255 }
  return byte(v + 0.5)
}
