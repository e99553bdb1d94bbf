package qa

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

// Context is a note chunk that supports an answer.
type Context struct {
	StoredFilename string  `json:"stored_filename"`
	ChunkID        int     `json:"chunk_id"`
	Score          float64 `json:"score"`
	Snippet        string  `json:"snippet"`
}

// AskResponse is the reply of /ask. Answer is empty when nothing matched.
type AskResponse struct {
	Answer   string    `json:"answer"`
	Contexts []Context `json:"contexts"`
}

// SearchResult is one scored chunk.
type SearchResult struct {
	StoredFilename string  `json:"stored_filename"`
	ChunkID        int     `json:"chunk_id"`
	Score          float64 `json:"score"`
	Text           string  `json:"text"`
}

// SearchResponse is the reply of /search, best results first.
type SearchResponse struct {
	Q       string         `json:"q"`
	K       int            `json:"k"`
	Results []SearchResult `json:"results"`
}

// Upload describes a stored file.
type Upload struct {
	StoredFilename string `json:"stored_filename"`
	Bytes          int64  `json:"bytes"`
}

// UploadList is the reply of /uploads.
type UploadList struct {
	Count int      `json:"count"`
	Items []Upload `json:"items"`
}
