package correct
/*
Implements filter "clahe":
Contrast limited adaptive histogram equalization of the lightness plane. Chroma is not modified.
Options:
- cliplimit: float [0.0, 256.0] (multiple of the uniform bin count a histogram bin may reach, 0 disables clipping)
- tiles: int[,int] [1, 256] (number of tiles in horizontal and vertical direction)
*/

import (
  "fmt"
  "image"
  "strings"
)

const (
  FilterNameClahe = "clahe"

  DefaultClipLimit  = 3.0
  DefaultTilesX     = 8
  DefaultTilesY     = 8

  maxClipLimit      = 256.0
  maxTiles          = 256
)

type FilterClahe struct {
  options       optionsMap
  opt_cliplimit, opt_tiles  string
}

// Register filter for use in the correction pipeline.
func init() {
  registerFilter(FilterNameClahe, NewFilterClahe)
}


// Creates a new Clahe filter.
func NewFilterClahe() Filter {
  f := FilterClahe{options: make(optionsMap), opt_cliplimit: "cliplimit", opt_tiles: "tiles"}
  f.SetOption(f.opt_cliplimit, fmt.Sprintf("%v", DefaultClipLimit))
  f.SetOption(f.opt_tiles, fmt.Sprintf("%d,%d", DefaultTilesX, DefaultTilesY))
  return &f
}

// GetName returns the name of the filter for identification purposes.
func (f *FilterClahe) GetName() string {
  return FilterNameClahe
}

// GetOption returns the option of given name. Content of return value is filter specific.
func (f *FilterClahe) GetOption(key string) interface{} {
  v, ok := f.options[strings.ToLower(key)]
  if !ok { return nil }
  return v
}

// SetOption adds or updates an option of the given key to the filter.
func (f *FilterClahe) SetOption(key, value string) error {
  key = strings.ToLower(key)
  switch key {
    case f.opt_cliplimit:
      v, err := parseFloatRange(value, 0.0, maxClipLimit)
      if err != nil { return fmt.Errorf("Option %s: %v", key, err) }
      f.options[key] = v
    case f.opt_tiles:
      seq, err := parseIntSeq(value)
      if err != nil { return fmt.Errorf("Option %s: %v", key, err) }
      if len(seq) == 1 { seq = append(seq, seq[0]) }
      if len(seq) != 2 { return fmt.Errorf("Option %s: expected one or two values: %s", key, value) }
      for _, n := range seq {
        if n < 1 || n > maxTiles { return fmt.Errorf("Option %s: not in range [1, %d]: %s", key, maxTiles, value) }
      }
      f.options[key] = seq
    default:
      return fmt.Errorf("Option %s: not supported by filter %q", key, FilterNameClahe)
  }
  return nil
}

// Process applies the contrast equalization to the specified image and returns the result as a new image.
func (f *FilterClahe) Process(img *image.NRGBA) *image.NRGBA {
  lab := ToLab(img)
  return f.EqualizeLab(lab).ToDevice()
}


// EqualizeLab returns a new LabImage with an equalized lightness plane. The A and B planes of the result
// are identical to the source.
func (f *FilterClahe) EqualizeLab(lab *LabImage) *LabImage {
  clipLimit := f.GetOption(f.opt_cliplimit).(float64)
  tiles := f.GetOption(f.opt_tiles).([]int)
  out := lab.Clone()
  if len(lab.L) == 0 { return out }
  equalizePlane(out.L, lab.L, lab.Width, lab.Height, tiles[0], tiles[1], clipLimit)
  return out
}


// Interpolation parameters of a single row or column position.
type tileWeight struct {
  i1, i2  int       // indices of the tiles to interpolate between
  w2      float64   // weight of tile i2
}

// Used internally. Equalizes src into dst, using a grid of tilesX by tilesY tiles.
func equalizePlane(dst, src []byte, width, height, tilesX, tilesY int, clipLimit float64) {
  if tilesX > width { tilesX = width }
  if tilesY > height { tilesY = height }

  xb := tileBounds(width, tilesX)
  yb := tileBounds(height, tilesY)

  luts := make([][256]byte, tilesX * tilesY)
  for ty := 0; ty < tilesY; ty++ {
    for tx := 0; tx < tilesX; tx++ {
      luts[ty*tilesX + tx] = tileLut(src, width, xb[tx], xb[tx+1], yb[ty], yb[ty+1], clipLimit)
    }
  }

  cols := tileWeights(xb)
  rows := tileWeights(yb)
  for y := 0; y < height; y++ {
    r := rows[y]
    rowTop, rowBottom := r.i1 * tilesX, r.i2 * tilesX
    idx := y * width
    for x := 0; x < width; x++ {
      c := cols[x]
      v := src[idx]
      v11 := float64(luts[rowTop + c.i1][v])
      v12 := float64(luts[rowTop + c.i2][v])
      v21 := float64(luts[rowBottom + c.i1][v])
      v22 := float64(luts[rowBottom + c.i2][v])
      top := v11 + (v12 - v11) * c.w2
      bottom := v21 + (v22 - v21) * c.w2
      dst[idx] = clampByte(top + (bottom - top) * r.w2)
      idx++
    }
  }
}

// Used internally. Returns numTiles+1 tile boundaries covering size. Tile i covers [b[i], b[i+1]).
func tileBounds(size, numTiles int) []int {
  b := make([]int, numTiles + 1)
  for i := range b {
    b[i] = i * size / numTiles
  }
  return b
}

// Used internally. Computes interpolation parameters for every position covered by the given tile bounds.
// Positions before the first or after the last tile center are mapped to the nearest tile only.
func tileWeights(bounds []int) []tileWeight {
  numTiles := len(bounds) - 1
  size := bounds[numTiles]
  centers := make([]float64, numTiles)
  for i := range centers {
    centers[i] = float64(bounds[i] + bounds[i+1] - 1) / 2.0
  }

  retVal := make([]tileWeight, size)
  tile := 0
  for pos := 0; pos < size; pos++ {
    p := float64(pos)
    for tile < numTiles - 1 && p >= centers[tile+1] { tile++ }
    switch {
      case p <= centers[0]:
        retVal[pos] = tileWeight{0, 0, 0.0}
      case tile == numTiles - 1:
        retVal[pos] = tileWeight{tile, tile, 0.0}
      default:
        w := (p - centers[tile]) / (centers[tile+1] - centers[tile])
        retVal[pos] = tileWeight{tile, tile + 1, w}
    }
  }
  return retVal
}

// Used internally. Computes the clipped cumulative remapping table of the tile [x0, x1) x [y0, y1).
func tileLut(src []byte, stride, x0, x1, y0, y1 int, clipLimit float64) (lut [256]byte) {
  area := (x1 - x0) * (y1 - y0)
  if area <= 0 {
    for i := range lut { lut[i] = byte(i) }
    return
  }

  var hist [256]int
  for y := y0; y < y1; y++ {
    row := src[y*stride + x0:y*stride + x1]
    for _, v := range row {
      hist[v]++
    }
  }

  if clipLimit > 0.0 {
    limit := int(clipLimit * float64(area) / 256.0)
    if limit < 1 { limit = 1 }
    excess := 0
    for i := range hist {
      if hist[i] > limit {
        excess += hist[i] - limit
        hist[i] = limit
      }
    }

    // redistributing clipped pixels evenly across all bins
    batch := excess / 256
    residual := excess - batch * 256
    for i := range hist {
      hist[i] += batch
    }
    if residual > 0 {
      step := 256 / residual
      if step < 1 { step = 1 }
      for i := 0; i < 256 && residual > 0; i += step {
        hist[i]++
        residual--
      }
    }
  }

  scale := 255.0 / float64(area)
  sum := 0
  for i := range hist {
    sum += hist[i]
    lut[i] = clampByte(float64(sum) * scale)
  }
  return
}
