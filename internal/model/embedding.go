package model

type EmbeddingCache struct {
	ModelName   string    `json:"model_name"`
	TaskType    string    `json:"task_type"`
	ContentHash string    `json:"content_hash"`
	Embedding   []float32 `json:"embedding"`
	Ctime       int64     `json:"ctime"`
}

// VectorEntry is one row of a sqlite backed vector collection.
type VectorEntry struct {
	Collection string                 `json:"collection"`
	ID         string                 `json:"id"`
	Content    string                 `json:"content"`
	Metadata   map[string]interface{} `json:"metadata"`
	Embedding  []float32              `json:"embedding"`
	Mtime      int64                  `json:"mtime"`
}
