package model

// Predictor is the read-only model contract shared by request handlers.
type Predictor interface {
	Available() bool
	Predict(x float64) (float64, error)
}

// RecordSink accepts formatted prediction records. Append never fails from the
// caller's point of view.
type RecordSink interface {
	Append(line string)
	Name() string
}
