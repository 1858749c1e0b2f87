package models

import (
	"encoding/json"
	"time"
)

// SourceType identifies how a source document entered the knowledge base
type SourceType string

const (
	SourceTypeFile      SourceType = "file"
	SourceTypeLink      SourceType = "link"
	SourceTypeText      SourceType = "text"
	SourceTypeQA        SourceType = "qa"
	SourceTypeParsedJob SourceType = "parsed_job"
)

// Valid reports whether the source type is one of the known variants
func (s SourceType) Valid() bool {
	switch s {
	case SourceTypeFile, SourceTypeLink, SourceTypeText, SourceTypeQA, SourceTypeParsedJob:
		return true
	}
	return false
}

// SourceDocument is the context unit owning zero or more chunks.
// Deleting a source document cascades to its chunks.
type SourceDocument struct {
	ID              string     `json:"id"`
	KnowledgeBaseID string     `json:"knowledge_base_id" badgerholdIndex:"KnowledgeBaseID"`
	Type            SourceType `json:"type"`
	Title           string     `json:"title"`

	// SizeBytes is the submitted (pre-chunk, pre-dedup) content size.
	// Plan accounting reflects what was submitted, not what was indexed.
	SizeBytes int64 `json:"size_bytes"`

	// Metadata is the typed payload for the source variant, flattened for
	// storage via the ToMap converters below.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// FileMetadata describes a file-sourced document
type FileMetadata struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type,omitempty"`
}

// LinkMetadata describes a link-sourced document
type LinkMetadata struct {
	URL       string `json:"url"`
	PageTitle string `json:"page_title,omitempty"`
}

// TextMetadata describes a raw-text-sourced document
type TextMetadata struct {
	Label string `json:"label,omitempty"`
}

// QAMetadata describes a question/answer-sourced document
type QAMetadata struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ParsedJobMetadata describes a document produced by a completed parse job
type ParsedJobMetadata struct {
	JobID     string `json:"job_id"`
	FileName  string `json:"file_name"`
	PageCount int    `json:"page_count"`
}

// ToMap converts file metadata to a map for storage
func (f *FileMetadata) ToMap() (map[string]interface{}, error) {
	return metadataToMap(f)
}

// ToMap converts link metadata to a map for storage
func (l *LinkMetadata) ToMap() (map[string]interface{}, error) {
	return metadataToMap(l)
}

// ToMap converts text metadata to a map for storage
func (t *TextMetadata) ToMap() (map[string]interface{}, error) {
	return metadataToMap(t)
}

// ToMap converts Q&A metadata to a map for storage
func (q *QAMetadata) ToMap() (map[string]interface{}, error) {
	return metadataToMap(q)
}

// ToMap converts parsed-job metadata to a map for storage
func (p *ParsedJobMetadata) ToMap() (map[string]interface{}, error) {
	return metadataToMap(p)
}

func metadataToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// KnowledgeBaseStats summarizes a knowledge base for status reporting
type KnowledgeBaseStats struct {
	KnowledgeBaseID string    `json:"knowledge_base_id"`
	DocumentCount   int       `json:"document_count"`
	ChunkCount      int       `json:"chunk_count"`
	TotalSizeBytes  int64     `json:"total_size_bytes"`
	LastUpdated     time.Time `json:"last_updated"`
}
