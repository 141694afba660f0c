package model

import "time"

// Headings groups heading texts by level, h1 through h6.
type Headings struct {
	H1 []string `json:"h1,omitempty"`
	H2 []string `json:"h2,omitempty"`
	H3 []string `json:"h3,omitempty"`
	H4 []string `json:"h4,omitempty"`
	H5 []string `json:"h5,omitempty"`
	H6 []string `json:"h6,omitempty"`
}

// All returns every heading text in level order, h1 first.
func (h Headings) All() []string {
	var out []string
	out = append(out, h.H1...)
	out = append(out, h.H2...)
	out = append(out, h.H3...)
	out = append(out, h.H4...)
	out = append(out, h.H5...)
	out = append(out, h.H6...)
	return out
}

// PageMetadata is the descriptive metadata extracted from a page's head
// and structured-data blocks. It is purely observational; analyzers read
// it but never mutate it.
type PageMetadata struct {
	Title          string   `json:"title,omitempty"`
	Description    string   `json:"description,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
	Author         string   `json:"author,omitempty"`
	PublishedDate  string   `json:"published_date,omitempty"`
	ModifiedDate   string   `json:"modified_date,omitempty"`
	CanonicalURL   string   `json:"canonical_url,omitempty"`
	Language       string   `json:"language,omitempty"`
	OGTitle        string   `json:"og_title,omitempty"`
	OGDescription  string   `json:"og_description,omitempty"`
	OGImage        string   `json:"og_image,omitempty"`
	OGType         string   `json:"og_type,omitempty"`
	OGSiteName     string   `json:"og_site_name,omitempty"`
	TwitterCard    string   `json:"twitter_card,omitempty"`
	TwitterTitle   string   `json:"twitter_title,omitempty"`
	TwitterImage   string   `json:"twitter_image,omitempty"`
	Favicon        string   `json:"favicon,omitempty"`
	Headings       Headings `json:"headings"`
	InternalLinks  int      `json:"internal_links"`
	ExternalLinks  int      `json:"external_links"`
	ImageCount     int      `json:"image_count"`
	WordCount      int      `json:"word_count"`
	SchemaTypes    []string `json:"schema_types,omitempty"`
}

// ExtractedPage is a crawled page after boilerplate removal and
// main-content isolation.
type ExtractedPage struct {
	URL              string       `json:"url"`
	Title            string       `json:"title,omitempty"`
	MainContent      string       `json:"main_content"`
	FullText         string       `json:"full_text"`
	Markdown         string       `json:"markdown,omitempty"`
	Metadata         PageMetadata `json:"metadata"`
	WordCount        int          `json:"word_count"`
	Depth            int          `json:"depth"`
	Surface          Surface      `json:"surface"`
	FetchedAt        time.Time    `json:"fetched_at"`
	HTMLSize         int          `json:"html_size"`
	ContentSize      int          `json:"content_size"`
	CompressionRatio float64      `json:"compression_ratio"`
}
