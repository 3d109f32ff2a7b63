package model

type RequestChunk struct {
	RequestID   string    `json:"request_id"`
	ChunkIndex  int       `json:"chunk_index"`
	Content     string    `json:"content"`
	Embedding   []float32 `json:"embedding"`
	ContentHash string    `json:"content_hash"`
	Mtime       int64     `json:"mtime"`
}
