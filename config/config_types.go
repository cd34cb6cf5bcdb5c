package config

import (
  "fmt"
  "sort"
  "strings"
)

// Generic variant type used to represent various datatypes used in the config package.
type Variant interface { ToString() string }
// Variant of type bool
type VarBool interface { ToBool() bool }
// Variant of type int64
type VarInt interface { ToInt() int64 }
// Variant of type float64
type VarFloat interface { ToFloat() float64 }
// Variant of type []int64
type VarIntArray interface { ToIntArray() []int64 }
// Variant of type []string
type VarTextArray interface { ToTextArray() []string }
// Variant of a custom filter structure
type VarFilterMap interface {
  GetName() string
  GetOptions() [][]string
}

type Text struct { Value string }
type Bool struct { Value bool }
type Int struct { Value int64 }
type Float struct { Value float64 }
type IntArray struct { Value []int64 }
type TextArray struct { Value []string }
type Filter struct {
  Name      string
  Options   map[string]string
}


func (t Text) ToString() string { return t.Value }

func (b Bool) ToString() string { return fmt.Sprintf("%v", b.Value) }
func (b Bool) ToBool() bool { return b.Value }

func (i Int) ToString() string { return fmt.Sprintf("%d", i.Value) }
func (i Int) ToInt() int64 { return i.Value }

func (f Float) ToString() string { return fmt.Sprintf("%v", f.Value) }
func (f Float) ToFloat() float64 { return f.Value }

func (ia IntArray) ToString() string { return fmt.Sprintf("%v", ia.Value) }
func (ia IntArray) ToIntArray() []int64 { return ia.Value }

func (ta TextArray) ToString() string { return fmt.Sprintf("%v", ta.Value) }
func (ta TextArray) ToTextArray() []string { return ta.Value }

// ToString returns summary of filter name and options.
func (f Filter) ToString() string {
  var sb strings.Builder
  sb.WriteString(fmt.Sprintf("{name:%s}", f.Name))
  for _, option := range f.GetOptions() {
    sb.WriteString(fmt.Sprintf(",{%s:%s}", option[0], option[1]))
  }
  return sb.String()
}

// GetName returns the filter name.
func (f Filter) GetName() string { return f.Name }

// GetOptions returns all options as an array of key/value pairs, sorted by key.
func (f Filter) GetOptions() [][]string {
  keys := make([]string, 0, len(f.Options))
  for key := range f.Options {
    keys = append(keys, key)
  }
  sort.Strings(keys)
  retVal := make([][]string, 0, len(f.Options))
  for _, key := range keys {
    retVal = append(retVal, []string{key, f.Options[key]})
  }
  return retVal
}
