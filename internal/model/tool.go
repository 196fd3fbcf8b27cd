// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data. The `json:"..."` tags control
// the API shape and the `db:"..."` tags let sqlx map columns onto fields.
package model

// Tool is a catalog entry describing a single third-party API.
//
// Description is a pointer because the column is nullable: a tool can be
// stored without any description, and the API renders that as JSON null
// rather than an empty string.
//
// URL is globally unique. The database enforces it with a unique index, so a
// second insert with the same URL is rejected (API) or ignored (batch jobs).
type Tool struct {
	ID          int64   `json:"id"          db:"id"`
	Name        string  `json:"name"        db:"name"`
	Description *string `json:"description" db:"description"`
	Category    string  `json:"category"    db:"category"`
	URL         string  `json:"url"         db:"url"`
}

// SearchText is the text used to embed a tool for semantic search:
// the description when present, otherwise the name.
func (t Tool) SearchText() string {
	if t.Description != nil && *t.Description != "" {
		return *t.Description
	}
	return t.Name
}

// ToolUpdate is a partial update. A nil field means "leave unchanged".
type ToolUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	URL         *string `json:"url"`
}

// IsEmpty reports whether the update carries no fields at all.
func (u ToolUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.Category == nil && u.URL == nil
}

// StringPtr returns a pointer to s. Handy for optional fields in literals.
func StringPtr(s string) *string {
	return &s
}
