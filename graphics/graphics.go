/*
Package graphics provides functions for loading and saving various single- or multi-image graphics resources
without having to take care of the details.

Light Corrector is released under the BSD 2-clause license. See LICENSE in the project's root folder for more details.
*/
package graphics

import (
  "bytes"
  "errors"
  "fmt"
  "image"
  "image/draw"
  "image/gif"
  "image/jpeg"
  "image/png"
  "io"
  "os"
  "path/filepath"
  "strings"

  "github.com/InfinityTools/go-logging"
  "github.com/deepteams/webp"
  "golang.org/x/image/bmp"
)

// Can be used to identifiy the imported image format
const (
  TYPE_UNKNOWN = -1
  TYPE_BMP  = iota
  TYPE_GIF
  TYPE_JPG
  TYPE_PNG
  TYPE_WEBP
)

// Quality of exported JPEG images.
const JpegQuality = 95

// Options of exported WebP images.
const (
  WebPLossless  = true
  WebPQuality   = 90
)

// The main graphics structure.
type Graphics struct {
  frames  []*image.NRGBA  // one or more frames imported from the graphics resource
  format  int             // see TYPE_xxx constants
  err     error
}


// Import imports a graphics resources pointed to by the ReadSeeker interface.
// Use function Error() to check if Import returned successfully.
func Import(rs io.ReadSeeker) *Graphics {
  g := Graphics{frames: make([]*image.NRGBA, 0), format: TYPE_UNKNOWN, err: nil}
  if rs == nil { g.err = errors.New("No source specified"); return &g }

  (&g).importImage(rs)

  return &g
}


// Load decodes the image file at the given path and returns the first image it contains.
func Load(path string) (*image.NRGBA, error) {
  f, err := os.Open(path)
  if err != nil { return nil, err }
  defer f.Close()

  g := Import(f)
  if g.Error() != nil { return nil, g.Error() }
  if g.GetImageLength() == 0 { return nil, errors.New("No image data found") }
  return g.GetImage(0), nil
}


// Error returns the error state of the most recent operation on the Graphics. Use ClearError() function to clear the
// current error state.
func (g *Graphics) Error() error {
  return g.err
}


// ClearError clears the error state from the last Graphics operation. This function must be called for subsequent
// operations to work correctly.
func (g *Graphics) ClearError() {
  g.err = nil
}


// GetImageLength returns the number of available images.
func (g *Graphics) GetImageLength() int {
  if g.err != nil { return 0 }

  return len(g.frames)
}


// GetImageType returns the format of the imported image. See TYPE_xxx constants.
func (g *Graphics) GetImageType() int {
  if g.err != nil { return TYPE_UNKNOWN }
  return g.format
}


// GetImage returns the image at the specified index.
//
// For BMP, JPG, PNG and WebP only index=0 is valid. GIF may contain multiple images.
// The returned image is always of image.NRGBA format with origin at (0, 0).
func (g *Graphics) GetImage(index int) *image.NRGBA {
  if g.err != nil { return nil }
  if index < 0 || index >= g.GetImageLength() { return nil }

  return g.frames[index]
}


// Used internally. Delegates import to more specialized functions.
func (g *Graphics) importImage(rs io.ReadSeeker) {
  hdr := make([]byte, 12)
  n, err := io.ReadFull(rs, hdr)
  if err != nil && err != io.ErrUnexpectedEOF { g.err = err; return }
  hdr = hdr[:n]
  _, err = rs.Seek(0, io.SeekStart)
  if err != nil { g.err = err; return }

  if len(hdr) >= 2 && string(hdr[:2]) == "BM" {
    g.importImageBMP(rs)
  } else if len(hdr) >= 3 && string(hdr[:3]) == "GIF" {
    g.importImageGIF(rs)
  } else if len(hdr) >= 3 && bytes.Equal(hdr[:3], []byte{0xff, 0xd8, 0xff}) {
    g.importImageJPG(rs)
  } else if len(hdr) >= 4 && string(hdr[1:4]) == "PNG" {
    g.importImagePNG(rs)
  } else if len(hdr) >= 12 && string(hdr[:4]) == "RIFF" && string(hdr[8:12]) == "WEBP" {
    g.importImageWebP(rs)
  } else {
    // unsupported
    g.err = errors.New("Unrecognized input format")
  }
}


// Used internally. Imports a BMP resource.
func (g *Graphics) importImageBMP(r io.Reader) {
  img, err := bmp.Decode(r)
  if err != nil { g.err = err; return }
  g.frames = append(g.frames, toNRGBA(img))

  g.format = TYPE_BMP
}


// Used internally. Imports a GIF resource. Animated GIFs are rendered into separate full-canvas frames.
func (g *Graphics) importImageGIF(r io.Reader) {
  data, err := gif.DecodeAll(r)
  if err != nil { g.err = err; return }

  isAnim := len(data.Image) > 1
  if isAnim { logging.Log("Decoding GIF frames") }
  numFrames := len(data.Image)
  g.frames = make([]*image.NRGBA, numFrames)

  // Creating master image with global canvas size for all frames
  imgMain := image.NewNRGBA(image.Rect(0, 0, data.Config.Width, data.Config.Height))

  for idx := 0; idx < numFrames; idx++ {
    imgCur := data.Image[idx]
    mode := data.Disposal[idx]

    // Backing up current frame content for later
    var imgBackup *image.NRGBA = nil
    if mode == gif.DisposalPrevious {
      imgBackup = image.NewNRGBA(imgMain.Bounds())
      copy(imgBackup.Pix, imgMain.Pix)
    }

    // Rendering frame
    draw.Draw(imgMain, imgCur.Bounds(), imgCur, imgCur.Bounds().Min, draw.Over)
    img := image.NewNRGBA(imgMain.Bounds())
    copy(img.Pix, imgMain.Pix)
    g.frames[idx] = img

    // Cleaning up frame
    switch mode {
      case gif.DisposalBackground:
        // Restore current frame region to background color
        draw.Draw(imgMain, imgCur.Bounds(), image.Transparent, image.ZP, draw.Src)
      case gif.DisposalPrevious:
        // Restore content of previous frame
        copy(imgMain.Pix, imgBackup.Pix)
      default:  // Don't clear content from previous frame(s)
    }

    if isAnim { logging.LogProgressDot(idx, numFrames, 79 - 19) }  // 19 is length of prefixed string
  }
  if isAnim { logging.OverridePrefix(false, false, false).Logln("") }

  g.format = TYPE_GIF
}


// Used internally. Imports a JPG resource.
func (g *Graphics) importImageJPG(r io.Reader) {
  img, err := jpeg.Decode(r)
  if err != nil { g.err = err; return }
  g.frames = append(g.frames, toNRGBA(img))

  g.format = TYPE_JPG
}


// Used internally. Imports a PNG resource.
func (g *Graphics) importImagePNG(r io.Reader) {
  img, err := png.Decode(r)
  if err != nil { g.err = err; return }
  g.frames = append(g.frames, toNRGBA(img))

  g.format = TYPE_PNG
}


// Used internally. Imports a WebP resource. Only the first frame of animated WebP files is imported.
func (g *Graphics) importImageWebP(r io.Reader) {
  img, err := webp.Decode(r)
  if err != nil { g.err = err; return }
  g.frames = append(g.frames, toNRGBA(img))

  g.format = TYPE_WEBP
}


// FormatFromPath returns the image format associated with the file extension of the given path. See TYPE_xxx constants.
func FormatFromPath(path string) int {
  switch strings.ToLower(filepath.Ext(path)) {
    case ".bmp":
      return TYPE_BMP
    case ".gif":
      return TYPE_GIF
    case ".jpg", ".jpeg":
      return TYPE_JPG
    case ".png":
      return TYPE_PNG
    case ".webp":
      return TYPE_WEBP
    default:
      return TYPE_UNKNOWN
  }
}


// Export encodes the image in the specified format (see TYPE_xxx constants) and writes it to w.
func Export(w io.Writer, img image.Image, format int) error {
  if img == nil { return errors.New("No image specified") }
  switch format {
    case TYPE_BMP:
      return bmp.Encode(w, img)
    case TYPE_GIF:
      return gif.Encode(w, img, &gif.Options{NumColors: 256})
    case TYPE_JPG:
      return jpeg.Encode(w, img, &jpeg.Options{Quality: JpegQuality})
    case TYPE_PNG:
      return png.Encode(w, img)
    case TYPE_WEBP:
      return webp.Encode(w, img, &webp.EncoderOptions{Lossless: WebPLossless, Quality: WebPQuality, Method: 4})
    default:
      return fmt.Errorf("Unsupported output format: %d", format)
  }
}


// Save writes the image to the given path. The output format is determined by the file extension.
func Save(path string, img image.Image) (err error) {
  format := FormatFromPath(path)
  if format == TYPE_UNKNOWN { return fmt.Errorf("Unsupported output format: %q", filepath.Ext(path)) }

  f, err := os.Create(path)
  if err != nil { return }
  defer func() {
    if err2 := f.Close(); err == nil { err = err2 }
  }()
  err = Export(f, img, format)
  return
}


// Used internally. Returns img as image.NRGBA with origin at (0, 0).
func toNRGBA(img image.Image) *image.NRGBA {
  if imgNRGBA, ok := img.(*image.NRGBA); ok && imgNRGBA.Bounds().Min == image.ZP { return imgNRGBA }
  b := img.Bounds()
  imgOut := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
  draw.Draw(imgOut, imgOut.Bounds(), img, b.Min, draw.Src)
  return imgOut
}
