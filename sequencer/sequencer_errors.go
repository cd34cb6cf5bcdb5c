package sequencer

import (
  "errors"
  "fmt"
)

// ErrNoFrames is wrapped by the DecodeError of a video source that does not provide a single readable frame.
var ErrNoFrames = errors.New("No frames could be read")

// DecodeError is returned if an image or video source cannot be opened or decoded.
type DecodeError struct {
  Path  string
  Err   error
}

func (e *DecodeError) Error() string {
  return fmt.Sprintf("Cannot decode %q: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
  return e.Err
}


// EncodeError is returned if a destination cannot be created or written.
type EncodeError struct {
  Path  string
  Err   error
}

func (e *EncodeError) Error() string {
  return fmt.Sprintf("Cannot encode %q: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error {
  return e.Err
}


// Succeeded returns whether an operation returning err completed successfully.
func Succeeded(err error) bool {
  return err == nil
}
