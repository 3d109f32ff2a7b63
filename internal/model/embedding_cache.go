package model

// EmbeddingCache is one persisted embedding keyed by model, task type and
// content hash. Rows older than the configured keep window are purged by the
// cleanup job.
type EmbeddingCache struct {
	ModelName   string    `json:"model_name"`
	TaskType    string    `json:"task_type"`
	ContentHash string    `json:"content_hash"`
	Embedding   []float32 `json:"embedding"`
	Ctime       int64     `json:"ctime"`
}
