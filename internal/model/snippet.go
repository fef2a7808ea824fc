package model

import "time"

// DefaultLanguage is used when a snippet is created without a language.
const DefaultLanguage = "javascript"

// Snippet is a piece of code, a screenshot of code, or both.
type Snippet struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	FolderID      *string   `json:"folder_id"`
	FolderName    *string   `json:"folder_name,omitempty"`
	Title         string    `json:"title"`
	Description   *string   `json:"description"`
	Code          *string   `json:"code"`
	Language      string    `json:"language"`
	ScreenshotKey *string   `json:"-"`
	ScreenshotURL *string   `json:"screenshot_url"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasScreenshot reports whether an image is attached to the snippet.
func (s *Snippet) HasScreenshot() bool {
	return s.ScreenshotKey != nil && *s.ScreenshotKey != ""
}

// SnippetFilter narrows a snippet listing. The owner is always applied
// separately and is not part of the filter.
type SnippetFilter struct {
	Query     string
	FolderID  string
	Languages []string
}
