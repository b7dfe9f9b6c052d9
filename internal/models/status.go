package models

// CorpusStatus describes the size and location of the corpus store.
type CorpusStatus struct {
	Documents      int64  `json:"documents"`
	Pages          int64  `json:"pages"`
	DatabasePath   string `json:"database_path"`
	Driver         string `json:"driver"`
	DiskUsageBytes int64  `json:"disk_usage_bytes"`
}
