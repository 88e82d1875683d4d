// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Usage mirrors the provider's accounting block for one OCR call.
type Usage struct {
	PagesProcessed int   `json:"pages_processed" yaml:"pages_processed"`
	DocSizeBytes   int64 `json:"doc_size_bytes,omitempty" yaml:"doc_size_bytes,omitempty"`
}

// DocumentInfo summarizes the provenance of one OCR call.
type DocumentInfo struct {
	Model             string  `json:"model" yaml:"model"`
	Language          string  `json:"language" yaml:"language"`
	ProcessingTime    float64 `json:"processing_time" yaml:"processing_time"`
	OverallConfidence float64 `json:"overall_confidence" yaml:"overall_confidence"`
	Usage             *Usage  `json:"usage,omitempty" yaml:"usage,omitempty"`

	// Error is set when normalization fell back to flat text extraction.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Page is one recognized page. PageNumber is 1-based and advisory; page
// order is the order of the Pages slice.
type Page struct {
	PageNumber  int     `json:"page_number" yaml:"page_number"`
	Text        string  `json:"text" yaml:"text"`
	Confidence  float64 `json:"confidence" yaml:"confidence"`
	IsImageOnly bool    `json:"is_image_only,omitempty" yaml:"is_image_only,omitempty"`
}

// OCRResult is the provider-agnostic shape produced by the normalizer.
// Pages is never nil once normalized.
type OCRResult struct {
	DocumentInfo DocumentInfo `json:"document_info" yaml:"document_info"`
	Pages        []Page       `json:"pages" yaml:"pages"`

	// Text is a document-level flat text field, used only when every page
	// came back empty.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
}
