package correct
/*
Implements filter "whitebalance":
Removes a global color cast based on the Gray World assumption. The mean of the A and B chroma planes
is shifted towards the achromatic value while lightness is left untouched.
Options:
- strength: float [0.0, 1.0] (fraction of the estimated cast to remove, default: 1.0)
*/

import (
  "fmt"
  "image"
  "strings"
)

const (
  FilterNameWhiteBalance = "whitebalance"

  DefaultWhiteBalanceStrength = 1.0
)

type FilterWhiteBalance struct {
  options       optionsMap
  opt_strength  string
}

// Register filter for use in the correction pipeline.
func init() {
  registerFilter(FilterNameWhiteBalance, NewFilterWhiteBalance)
}


// Creates a new WhiteBalance filter.
func NewFilterWhiteBalance() Filter {
  f := FilterWhiteBalance{options: make(optionsMap), opt_strength: "strength"}
  f.SetOption(f.opt_strength, fmt.Sprintf("%v", DefaultWhiteBalanceStrength))
  return &f
}

// GetName returns the name of the filter for identification purposes.
func (f *FilterWhiteBalance) GetName() string {
  return FilterNameWhiteBalance
}

// GetOption returns the option of given name. Content of return value is filter specific.
func (f *FilterWhiteBalance) GetOption(key string) interface{} {
  v, ok := f.options[strings.ToLower(key)]
  if !ok { return nil }
  return v
}

// SetOption adds or updates an option of the given key to the filter.
func (f *FilterWhiteBalance) SetOption(key, value string) error {
  key = strings.ToLower(key)
  switch key {
    case f.opt_strength:
      v, err := parseFloatRange(value, 0.0, 1.0)
      if err != nil { return fmt.Errorf("Option %s: %v", key, err) }
      f.options[key] = v
    default:
      return fmt.Errorf("Option %s: not supported by filter %q", key, FilterNameWhiteBalance)
  }
  return nil
}

// Process applies the white balance correction to the specified image and returns the result as a new image.
func (f *FilterWhiteBalance) Process(img *image.NRGBA) *image.NRGBA {
  lab := ToLab(img)
  return f.BalanceLab(lab).ToDevice()
}


// BalanceLab returns a new LabImage with the chroma planes of the given image re-centered around the
// achromatic value. Shifted values saturate at the boundaries of the 8-bit range.
func (f *FilterWhiteBalance) BalanceLab(lab *LabImage) *LabImage {
  strength := f.GetOption(f.opt_strength).(float64)
  out := lab.Clone()
  if len(lab.L) == 0 || strength == 0.0 { return out }

  meanA, meanB := ChromaMeans(lab)
  shiftA := -(meanA - LabNeutral) * strength
  shiftB := -(meanB - LabNeutral) * strength
  shiftPlane(out.A, shiftA)
  shiftPlane(out.B, shiftB)
  return out
}


// ChromaMeans returns the mean value of the A and B planes of the given LabImage.
func ChromaMeans(lab *LabImage) (meanA, meanB float64) {
  if len(lab.A) == 0 { return LabNeutral, LabNeutral }
  var sumA, sumB uint64
  for idx := range lab.A {
    sumA += uint64(lab.A[idx])
    sumB += uint64(lab.B[idx])
  }
  n := float64(len(lab.A))
  return float64(sumA) / n, float64(sumB) / n
}


// Used internally. Adds shift to every value of the plane, rounding and saturating the result.
func shiftPlane(plane []byte, shift float64) {
  if shift == 0.0 { return }
  var table [256]byte
  for i := range table {
    table[i] = clampByte(float64(i) + shift)
  }
  for idx, v := range plane {
    plane[idx] = table[v]
  }
}
