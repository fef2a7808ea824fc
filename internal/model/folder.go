package model

import "time"

// Folder groups snippets owned by a single user.
type Folder struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FolderCreateRequest represents a request to create a folder.
type FolderCreateRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}
