package model

import "time"

// Shared defaults used by the server binary and its packages.
const (
	DefaultModelPath       = "local_model/predictor_model.onnx"
	DefaultLogFilePath     = "local_predictions.log"
	DefaultLogDestination  = DestinationLocal
	DefaultArchiveInterval = 6 * time.Hour
	DefaultArchiveKeepLast = 24

	// ServiceMessage is reported by the root endpoint.
	ServiceMessage = "Salary Predictor ML Model Server is running."
)
