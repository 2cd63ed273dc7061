package vision

import "context"

// Region is a detected face bounding box in frame coordinates.
type Region struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// LabeledSample pairs a normalized grayscale face image with its identity
// label for recognizer training.
type LabeledSample struct {
	Label int64  `json:"label"`
	Image []byte `json:"image"`
}

// Prediction is the recognizer output for one face crop. Distance follows
// the LBPH convention: lower means a closer match.
type Prediction struct {
	Label    int64   `json:"label"`
	Distance float64 `json:"distance"`
}

// Engine is the contract with the external detection/recognition service.
// Detection calls are pure classifiers over one image; Train returns an
// opaque serialized model that Predict consumes.
type Engine interface {
	DetectFaces(ctx context.Context, image []byte) ([]Region, error)
	DetectSmiles(ctx context.Context, face []byte) (int, error)
	DetectEyes(ctx context.Context, face []byte) (int, error)
	Train(ctx context.Context, samples []LabeledSample) ([]byte, error)
	Predict(ctx context.Context, model []byte, face []byte) (*Prediction, error)
	Health(ctx context.Context) error
}
