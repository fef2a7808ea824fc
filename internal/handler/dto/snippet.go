package dto

import "github.com/snipvault/snipvault/internal/model"

// CreateFolderRequest represents the request body for creating a folder.
type CreateFolderRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// ToModel converts the request to the service input.
func (r CreateFolderRequest) ToModel() model.FolderCreateRequest {
	return model.FolderCreateRequest{Name: r.Name, Description: r.Description}
}

// FolderListResponse represents the caller's folders.
type FolderListResponse struct {
	Data []*model.Folder `json:"data"`
}

// CreateSnippetRequest represents the JSON body for creating a snippet.
// Screenshots can only be attached through multipart uploads.
type CreateSnippetRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Code        string `json:"code,omitempty"`
	Language    string `json:"language,omitempty"`
	FolderID    string `json:"folder_id,omitempty"`
}

// SnippetListResponse represents a filtered list of the caller's snippets.
type SnippetListResponse struct {
	Data []*model.Snippet `json:"data"`
}

// NewFolderListResponse never returns a null data array.
func NewFolderListResponse(folders []*model.Folder) *FolderListResponse {
	if folders == nil {
		folders = []*model.Folder{}
	}
	return &FolderListResponse{Data: folders}
}

// NewSnippetListResponse never returns a null data array.
func NewSnippetListResponse(snippets []*model.Snippet) *SnippetListResponse {
	if snippets == nil {
		snippets = []*model.Snippet{}
	}
	return &SnippetListResponse{Data: snippets}
}
