package model

import (
	"errors"
	"fmt"
)

// ErrServiceUnavailable is returned for every prediction while the model is not loaded.
var ErrServiceUnavailable = errors.New("model is not available")

// ModelLoadError records why the model could not be loaded at startup.
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %q: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// InferenceError wraps a runtime failure during prediction.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	if e.Err == nil {
		return "inference failed"
	}
	return e.Err.Error()
}

func (e *InferenceError) Unwrap() error { return e.Err }

// LogReadError is returned when the prediction log exists but cannot be read.
type LogReadError struct {
	Path string
	Err  error
}

func (e *LogReadError) Error() string {
	return fmt.Sprintf("read prediction log %q: %v", e.Path, e.Err)
}

func (e *LogReadError) Unwrap() error { return e.Err }
