package video
// YUV4MPEG2 container with uncompressed planar frames.

import (
  "bufio"
  "bytes"
  "errors"
  "fmt"
  "image"
  "image/color"
  "io"
  "math"
  "os"
  "strconv"
  "strings"
)

const (
  CodecY4M = "I444"

  y4mSignature  = "YUV4MPEG2"
  y4mFrameTag   = "FRAME"
  y4mMaxHeader  = 1024
)

// Expansion of limited range samples to full range.
var y4mLumaRange, y4mChromaRange [256]byte

func init() {
  for i := range y4mLumaRange {
    y4mLumaRange[i] = clampSample(float64(i - 16) * 255.0 / 219.0)
    y4mChromaRange[i] = clampSample(float64(i - 128) * 255.0 / 224.0 + 128.0)
  }
  registerFormat(formatType{
    name:       "YUV4MPEG2",
    extensions: []string{".y4m"},
    codec:      func(opts Options) string { return CodecY4M },
    open:       openY4M,
    create:     createY4M,
  })
}

type y4mReader struct {
  file    *os.File
  r       *bufio.Reader
  desc    Descriptor
  ratio   image.YCbCrSubsampleRatio
  mono    bool
  limited bool    // samples use limited (studio) range
  ycc     *image.YCbCr
  pos     int
}

type y4mWriter struct {
  file    *os.File
  w       *bufio.Writer
  desc    Descriptor
  planes  []byte
  count   int
}


func openY4M(path string) (Reader, error) {
  file, err := os.Open(path)
  if err != nil { return nil, err }
  r := y4mReader{file: file, r: bufio.NewReader(file), ratio: image.YCbCrSubsampleRatio420, limited: true}
  if err := r.readHeader(); err != nil {
    file.Close()
    return nil, err
  }
  r.ycc = image.NewYCbCr(image.Rect(0, 0, r.desc.Width, r.desc.Height), r.ratio)
  return &r, nil
}

// Used internally. Parses the stream header. Unknown parameters are ignored. Samples are considered limited range
// unless the header specifies XCOLORRANGE=FULL.
func (r *y4mReader) readHeader() error {
  line, err := readY4MLine(r.r)
  if err != nil { return fmt.Errorf("Reading header: %v", err) }
  fields := strings.Fields(line)
  if len(fields) == 0 || fields[0] != y4mSignature { return errors.New("Not a YUV4MPEG2 stream") }

  r.desc.FrameRate = DefaultFrameRate
  for _, field := range fields[1:] {
    tag, value := field[0], field[1:]
    switch tag {
      case 'W':
        r.desc.Width, err = strconv.Atoi(value)
        if err != nil { return fmt.Errorf("Invalid width: %s", value) }
      case 'H':
        r.desc.Height, err = strconv.Atoi(value)
        if err != nil { return fmt.Errorf("Invalid height: %s", value) }
      case 'F':
        r.desc.FrameRate, err = parseY4MRate(value)
        if err != nil { return err }
      case 'I':
        if value != "p" && value != "?" { return fmt.Errorf("Unsupported interlacing mode: %s", value) }
      case 'C':
        switch {
          case strings.HasPrefix(value, "444"):
            r.ratio = image.YCbCrSubsampleRatio444
          case strings.HasPrefix(value, "422"):
            r.ratio = image.YCbCrSubsampleRatio422
          case strings.HasPrefix(value, "420"):
            r.ratio = image.YCbCrSubsampleRatio420
          case strings.HasPrefix(value, "mono"):
            r.ratio = image.YCbCrSubsampleRatio444
            r.mono = true
          default:
            return fmt.Errorf("Unsupported color space: %s", value)
        }
        if strings.HasSuffix(value, "p10") || strings.HasSuffix(value, "p12") || strings.HasSuffix(value, "p16") {
          return fmt.Errorf("Unsupported bit depth: %s", value)
        }
      case 'X':
        if key, rng, ok := strings.Cut(value, "="); ok && key == "COLORRANGE" {
          switch strings.ToUpper(rng) {
            case "FULL":
              r.limited = false
            case "LIMITED":
              r.limited = true
          }
        }
    }
  }
  if r.desc.Width <= 0 || r.desc.Height <= 0 {
    return fmt.Errorf("Invalid video dimensions: %dx%d", r.desc.Width, r.desc.Height)
  }
  return nil
}

func (r *y4mReader) Descriptor() Descriptor {
  return r.desc
}

func (r *y4mReader) ReadFrame() (*image.NRGBA, error) {
  if r.file == nil { return nil, errors.New("Video is closed") }
  line, err := readY4MLine(r.r)
  if err == io.EOF && len(line) == 0 { return nil, io.EOF }
  if err != nil { return nil, fmt.Errorf("Frame %d: %w", r.pos, unexpectedEOF(err)) }
  if !strings.HasPrefix(line, y4mFrameTag) { return nil, fmt.Errorf("Frame %d: invalid frame header", r.pos) }

  if _, err := io.ReadFull(r.r, r.ycc.Y); err != nil { return nil, fmt.Errorf("Frame %d: %w", r.pos, unexpectedEOF(err)) }
  if r.mono {
    for i := range r.ycc.Cb {
      r.ycc.Cb[i], r.ycc.Cr[i] = 128, 128
    }
  } else {
    if _, err := io.ReadFull(r.r, r.ycc.Cb); err != nil { return nil, fmt.Errorf("Frame %d: %w", r.pos, unexpectedEOF(err)) }
    if _, err := io.ReadFull(r.r, r.ycc.Cr); err != nil { return nil, fmt.Errorf("Frame %d: %w", r.pos, unexpectedEOF(err)) }
  }
  r.pos++
  if r.limited { r.expandRange() }

  img := image.NewNRGBA(image.Rect(0, 0, r.desc.Width, r.desc.Height))
  for y := 0; y < r.desc.Height; y++ {
    ofs := y * img.Stride
    for x := 0; x < r.desc.Width; x++ {
      c := r.ycc.YCbCrAt(x, y)
      img.Pix[ofs], img.Pix[ofs+1], img.Pix[ofs+2] = color.YCbCrToRGB(c.Y, c.Cb, c.Cr)
      img.Pix[ofs+3] = 255
      ofs += 4
    }
  }
  return img, nil
}

// Used internally. Expands limited range samples of the current frame to full range.
func (r *y4mReader) expandRange() {
  for i, v := range r.ycc.Y {
    r.ycc.Y[i] = y4mLumaRange[v]
  }
  if r.mono { return }
  for i := range r.ycc.Cb {
    r.ycc.Cb[i], r.ycc.Cr[i] = y4mChromaRange[r.ycc.Cb[i]], y4mChromaRange[r.ycc.Cr[i]]
  }
}

func (r *y4mReader) Close() error {
  if r.file == nil { return nil }
  err := r.file.Close()
  r.file, r.r = nil, nil
  return err
}


func createY4M(path string, desc Descriptor, opts Options) (Writer, error) {
  file, err := os.Create(path)
  if err != nil { return nil, err }
  w := y4mWriter{file: file, w: bufio.NewWriter(file), desc: desc, planes: make([]byte, desc.Width * desc.Height * 3)}
  _, err = fmt.Fprintf(w.w, "%s W%d H%d F%d:1 Ip A1:1 C444 XCOLORRANGE=FULL\n", y4mSignature, desc.Width, desc.Height, desc.FrameRate)
  if err != nil {
    file.Close()
    return nil, err
  }
  return &w, nil
}

// WriteFrame stores the frame as full resolution YCbCr. Alpha is discarded.
func (w *y4mWriter) WriteFrame(img image.Image) error {
  if w.file == nil { return errors.New("Video is closed") }
  if err := checkFrameSize(img, w.desc); err != nil { return err }

  size := w.desc.Width * w.desc.Height
  planeY, planeCb, planeCr := w.planes[:size], w.planes[size:size*2], w.planes[size*2:]
  b := img.Bounds()
  src, isNRGBA := img.(*image.NRGBA)
  idx := 0
  for y := 0; y < w.desc.Height; y++ {
    for x := 0; x < w.desc.Width; x++ {
      var c color.NRGBA
      if isNRGBA {
        c = src.NRGBAAt(b.Min.X + x, b.Min.Y + y)
      } else {
        c = color.NRGBAModel.Convert(img.At(b.Min.X + x, b.Min.Y + y)).(color.NRGBA)
      }
      planeY[idx], planeCb[idx], planeCr[idx] = color.RGBToYCbCr(c.R, c.G, c.B)
      idx++
    }
  }

  if _, err := w.w.WriteString(y4mFrameTag + "\n"); err != nil { return fmt.Errorf("Frame %d: %v", w.count, err) }
  if _, err := w.w.Write(w.planes); err != nil { return fmt.Errorf("Frame %d: %v", w.count, err) }
  w.count++
  return nil
}

func (w *y4mWriter) FrameCount() int {
  return w.count
}

func (w *y4mWriter) Close() error {
  if w.file == nil { return nil }
  err := w.w.Flush()
  if err2 := w.file.Close(); err == nil { err = err2 }
  w.file, w.w = nil, nil
  return err
}


// Used internally. Reads a single header line without the trailing newline.
func readY4MLine(r *bufio.Reader) (string, error) {
  var buf bytes.Buffer
  for buf.Len() < y4mMaxHeader {
    b, err := r.ReadByte()
    if err != nil { return buf.String(), err }
    if b == '\n' { return buf.String(), nil }
    buf.WriteByte(b)
  }
  return buf.String(), errors.New("Header line too long")
}

// Used internally. Parses a frame rate of the form "num:den" and rounds it to full frames per second.
func parseY4MRate(value string) (int, error) {
  parts := strings.SplitN(value, ":", 2)
  if len(parts) != 2 { return 0, fmt.Errorf("Invalid frame rate: %s", value) }
  num, err := strconv.Atoi(parts[0])
  if err != nil { return 0, fmt.Errorf("Invalid frame rate: %s", value) }
  den, err := strconv.Atoi(parts[1])
  if err != nil || den <= 0 || num <= 0 { return 0, fmt.Errorf("Invalid frame rate: %s", value) }
  fps := int(math.Round(float64(num) / float64(den)))
  if fps < 1 { fps = 1 }
  return fps, nil
}

// Used internally. Rounds and clamps v to the range of an 8-bit sample.
func clampSample(v float64) byte {
  v = math.Round(v)
  if v < 0 { return 0 }
  if v > 255 { return 255 }
  return byte(v)
}

// Used internally. Reports a premature end of stream as io.ErrUnexpectedEOF.
func unexpectedEOF(err error) error {
  if err == io.EOF { return io.ErrUnexpectedEOF }
  return err
}
