package queue

const (
	TypeIntentTrain = "intent:train"
)

// IntentTrainPayload asks a worker to retrain the intent model. Empty paths
// fall back to the worker's configured defaults.
type IntentTrainPayload struct {
	DatasetPath        string   `json:"dataset_path,omitempty"`
	ModelPath          string   `json:"model_path,omitempty"`
	ValidationFraction *float64 `json:"validation_fraction,omitempty"`
	RequestedBy        string   `json:"requested_by,omitempty"`
}
