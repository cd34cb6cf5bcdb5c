package correct
// Conversion between device RGB and 8-bit Lab.

import (
  "image"

  "github.com/lucasb-eyer/go-colorful"
)

const (
  // Chroma value of achromatic pixels in the A and B planes.
  LabNeutral = 128
)

// LabImage stores an image in planar 8-bit Lab representation.
//
// L is scaled from [0, 100] to [0, 255]. A and B are offset by 128, so that achromatic pixels
// have an A and B value of 128. Alpha is carried over from the source image unchanged.
type LabImage struct {
  L, A, B   []byte
  Alpha     []byte
  Width     int
  Height    int
}

// Lookup table for sRGB to linear RGB conversion of 8-bit channel values.
var linearTable [256]float64

func init() {
  for i := range linearTable {
    linearTable[i], _, _ = colorful.Color{R: float64(i) / 255.0}.LinearRgb()
  }
}


// NewLabImage allocates an empty LabImage of the given dimensions.
func NewLabImage(width, height int) *LabImage {
  size := width * height
  return &LabImage{L: make([]byte, size), A: make([]byte, size), B: make([]byte, size),
                   Alpha: make([]byte, size), Width: width, Height: height}
}


// ToLab converts the given image into a new LabImage.
func ToLab(img image.Image) *LabImage {
  src := ToNRGBA(img)
  w, h := src.Bounds().Dx(), src.Bounds().Dy()
  lab := NewLabImage(w, h)
  for y := 0; y < h; y++ {
    ofs := y * src.Stride
    idx := y * w
    for x := 0; x < w; x++ {
      lab.L[idx], lab.A[idx], lab.B[idx] = rgbToLab(src.Pix[ofs], src.Pix[ofs+1], src.Pix[ofs+2])
      lab.Alpha[idx] = src.Pix[ofs+3]
      ofs += 4
      idx++
    }
  }
  return lab
}


// ToDevice converts the LabImage back into a new RGB image. Colors outside of the sRGB gamut are clamped.
func (lab *LabImage) ToDevice() *image.NRGBA {
  img := image.NewNRGBA(image.Rect(0, 0, lab.Width, lab.Height))
  for y := 0; y < lab.Height; y++ {
    ofs := y * img.Stride
    idx := y * lab.Width
    for x := 0; x < lab.Width; x++ {
      img.Pix[ofs], img.Pix[ofs+1], img.Pix[ofs+2] = labToRGB(lab.L[idx], lab.A[idx], lab.B[idx])
      img.Pix[ofs+3] = lab.Alpha[idx]
      ofs += 4
      idx++
    }
  }
  return img
}


// Clone returns a deep copy of the LabImage.
func (lab *LabImage) Clone() *LabImage {
  out := NewLabImage(lab.Width, lab.Height)
  copy(out.L, lab.L)
  copy(out.A, lab.A)
  copy(out.B, lab.B)
  copy(out.Alpha, lab.Alpha)
  return out
}


// Used internally. Converts a single 8-bit sRGB color into 8-bit Lab values.
func rgbToLab(r, g, b byte) (l, a, bb byte) {
  x, y, z := colorful.LinearRgbToXyz(linearTable[r], linearTable[g], linearTable[b])
  fl, fa, fb := colorful.XyzToLab(x, y, z)
  return clampByte(fl * 255.0), clampByte(fa * 100.0 + LabNeutral), clampByte(fb * 100.0 + LabNeutral)
}

// Used internally. Converts a single 8-bit Lab color into 8-bit sRGB values.
func labToRGB(l, a, b byte) (r, g, bb byte) {
  x, y, z := colorful.LabToXyz(float64(l) / 255.0,
                               (float64(a) - LabNeutral) / 100.0,
                               (float64(b) - LabNeutral) / 100.0)
  lr, lg, lb := colorful.XyzToLinearRgb(x, y, z)
  return colorful.LinearRgb(lr, lg, lb).Clamped().RGB255()
}
