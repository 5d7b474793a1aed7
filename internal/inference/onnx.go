package inference

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var ortInitMu sync.Mutex

func onnxOpener(libraryPath string) Opener {
	return func(path string) (Session, error) {
		return openONNX(libraryPath, path)
	}
}

// onnxSession is a Session backed by onnxruntime.
type onnxSession struct {
	session *ort.DynamicAdvancedSession
	input   string
	output  string
}

func initRuntime(libraryPath string) error {
	ortInitMu.Lock()
	defer ortInitMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

func openONNX(libraryPath, path string) (Session, error) {
	if err := initRuntime(libraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("inspect model bindings: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("unsupported model: %d inputs and %d outputs, want exactly one of each", len(inputs), len(outputs))
	}

	in, out := inputs[0].Name, outputs[0].Name
	session, err := ort.NewDynamicAdvancedSession(path, []string{in}, []string{out}, nil)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &onnxSession{session: session, input: in, output: out}, nil
}

func (s *onnxSession) InputName() string  { return s.input }
func (s *onnxSession) OutputName() string { return s.output }

// Run feeds x as a [1,1] float32 tensor and returns the single output scalar.
func (s *onnxSession) Run(x float32) (float32, error) {
	shape := ort.NewShape(1, 1)

	input, err := ort.NewTensor(shape, []float32{x})
	if err != nil {
		return 0, fmt.Errorf("create input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](shape)
	if err != nil {
		return 0, fmt.Errorf("create output tensor: %w", err)
	}
	defer output.Destroy()

	if err := s.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return 0, fmt.Errorf("run session: %w", err)
	}

	data := output.GetData()
	if len(data) == 0 {
		return 0, fmt.Errorf("model produced an empty output")
	}
	return data[0], nil
}

func (s *onnxSession) Close() error {
	if err := s.session.Destroy(); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// Shutdown tears down the onnxruntime environment once every session is closed.
func Shutdown() error {
	ortInitMu.Lock()
	defer ortInitMu.Unlock()

	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}
