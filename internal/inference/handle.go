// Package inference owns the loaded regression model.
//
// A Handle is built exactly once at startup. When loading fails the handle stays
// permanently unavailable for the life of the process; there is no retry or reload.
package inference

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/tinytelemetry/inferd/internal/model"
)

// Session runs one single-input, single-output model.
type Session interface {
	InputName() string
	OutputName() string
	// Run evaluates one example with one feature.
	Run(x float32) (float32, error)
	Close() error
}

// Opener opens a Session for the model artifact at path.
type Opener func(path string) (Session, error)

// Config holds the model location and runtime settings.
type Config struct {
	ModelPath string
	// LibraryPath points at the onnxruntime shared library. Empty uses the
	// runtime's default lookup.
	LibraryPath string
}

// Handle wraps a loaded Session. The zero value is unavailable.
type Handle struct {
	path    string
	session Session
	loadErr error
}

// Load opens the ONNX model described by cfg. It never fails: on error the
// returned handle is unavailable and LoadErr reports why.
func Load(cfg Config) *Handle {
	return LoadWith(cfg.ModelPath, onnxOpener(cfg.LibraryPath))
}

// LoadWith loads the model at path through open.
func LoadWith(path string, open Opener) *Handle {
	h := &Handle{path: path}

	if err := checkArtifact(path); err != nil {
		h.loadErr = &model.ModelLoadError{Path: path, Err: err}
		log.Printf("inference: %v", h.loadErr)
		return h
	}

	session, err := open(path)
	if err != nil {
		h.loadErr = &model.ModelLoadError{Path: path, Err: err}
		log.Printf("inference: %v", h.loadErr)
		return h
	}

	h.session = session
	log.Printf("inference: loaded %s (input %q, output %q)", path, session.InputName(), session.OutputName())
	return h
}

func checkArtifact(path string) error {
	if path == "" {
		return errors.New("model path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

// Available reports whether predictions can be served.
func (h *Handle) Available() bool { return h != nil && h.session != nil }

// LoadErr returns the startup failure, or nil when the model is loaded.
func (h *Handle) LoadErr() error {
	if h == nil {
		return &model.ModelLoadError{Err: errors.New("no model handle")}
	}
	return h.loadErr
}

// Path returns the configured artifact path.
func (h *Handle) Path() string { return h.path }

func (h *Handle) InputName() string {
	if !h.Available() {
		return ""
	}
	return h.session.InputName()
}

func (h *Handle) OutputName() string {
	if !h.Available() {
		return ""
	}
	return h.session.OutputName()
}

// Predict runs the model for one feature value.
func (h *Handle) Predict(x float64) (float64, error) {
	if !h.Available() {
		return 0, model.ErrServiceUnavailable
	}
	y, err := h.session.Run(float32(x))
	if err != nil {
		return 0, &model.InferenceError{Err: err}
	}
	out := float64(y)
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, &model.InferenceError{Err: fmt.Errorf("model returned non-finite value %v", out)}
	}
	return out, nil
}

// Close releases the session.
func (h *Handle) Close() error {
	if !h.Available() {
		return nil
	}
	err := h.session.Close()
	h.session = nil
	return err
}
