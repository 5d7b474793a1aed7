// Package predict orchestrates a single prediction: availability check, inference,
// record keeping and response shaping.
package predict

import (
	"errors"
	"time"

	"github.com/tinytelemetry/inferd/internal/model"
)

// Service handles prediction requests against a shared read-only model.
type Service struct {
	model model.Predictor
	sink  model.RecordSink
	now   func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a prediction service.
func NewService(m model.Predictor, sink model.RecordSink, opts ...Option) *Service {
	s := &Service{model: m, sink: sink, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether the underlying model is loaded.
func (s *Service) Available() bool { return s.model != nil && s.model.Available() }

// Predict runs inference for a validated request.
// It returns model.ErrServiceUnavailable when the model never loaded and a
// *model.InferenceError when the runtime fails. Every attempt that reaches the
// model is recorded through the sink, whatever its outcome.
func (s *Service) Predict(req model.PredictionRequest) (model.PredictionResult, error) {
	if !s.Available() {
		return model.PredictionResult{}, model.ErrServiceUnavailable
	}

	years := req.Years()
	raw, err := s.model.Predict(years)
	if err != nil {
		var inf *model.InferenceError
		if !errors.As(err, &inf) {
			inf = &model.InferenceError{Err: err}
		}
		s.sink.Append(FailureLine(s.now(), years, inf))
		return model.PredictionResult{}, inf
	}

	salary := RoundSalary(raw)
	s.sink.Append(SuccessLine(s.now(), years, salary))

	return model.PredictionResult{
		ExperienceYears: years,
		PredictedSalary: salary,
	}, nil
}
