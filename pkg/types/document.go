// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SourceMetadata describes the source document as reported by a metadata
// extractor. Empty fields mean the extractor found no value.
type SourceMetadata struct {
	Title            string `json:"title,omitempty" yaml:"title,omitempty"`
	Author           string `json:"author,omitempty" yaml:"author,omitempty"`
	Subject          string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Keywords         string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Creator          string `json:"creator,omitempty" yaml:"creator,omitempty"`
	Producer         string `json:"producer,omitempty" yaml:"producer,omitempty"`
	CreationDate     string `json:"creation_date,omitempty" yaml:"creation_date,omitempty"`
	ModificationDate string `json:"modification_date,omitempty" yaml:"modification_date,omitempty"`
	PageCount        int    `json:"page_count,omitempty" yaml:"page_count,omitempty"`

	FileName string `json:"file_name,omitempty" yaml:"file_name,omitempty"`
	FileSize int64  `json:"file_size,omitempty" yaml:"file_size,omitempty"`

	// FileType is the lower-case extension without the dot (e.g. "pdf").
	FileType string `json:"file_type,omitempty" yaml:"file_type,omitempty"`

	// Extra holds format-specific fields, rendered in sorted key order.
	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Options controls a single conversion.
type Options struct {
	// Language is reported in the rendered document when the provider
	// response names none. The OCR API has no language parameter.
	Language string `json:"language,omitempty" yaml:"language,omitempty"`

	// Title overrides the document title.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Name is the file name used for uploads and inline conversions.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Credential, when set, is used instead of the configured API key for
	// this conversion only.
	Credential string `json:"-" yaml:"-"`

	// Model overrides the provider's default OCR model.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// IncludeImages asks the provider to return embedded images.
	IncludeImages bool `json:"include_images,omitempty" yaml:"include_images,omitempty"`

	// Extra carries pass-through request fields.
	Extra map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}
