package handler

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/snipvault/snipvault/internal/model"
	"github.com/snipvault/snipvault/internal/service"
)

type account struct {
	user     *model.User
	password string
}

// fakeAccounts implements Credentials and auth.UserLookup in memory.
type fakeAccounts struct {
	mu      sync.Mutex
	byEmail map[string]*account
	byID    map[string]*account
	seq     int
	err     error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byEmail: map[string]*account{}, byID: map[string]*account{}}
}

func (f *fakeAccounts) Register(_ context.Context, email, rawPassword, name string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, &service.ValidationError{Field: "email", Message: "is required"}
	}
	if len(rawPassword) < 8 {
		return nil, &service.ValidationError{Field: "password", Message: "must be at least 8 bytes"}
	}
	if _, ok := f.byEmail[email]; ok {
		return nil, service.ErrDuplicateEmail
	}
	f.seq++
	acc := &account{
		user: &model.User{
			ID:             fmt.Sprintf("user-%d", f.seq),
			Email:          email,
			Name:           name,
			PasswordDigest: "digest-of-" + rawPassword,
			CreatedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		password: rawPassword,
	}
	f.byEmail[email] = acc
	f.byID[acc.user.ID] = acc
	return acc.user, nil
}

func (f *fakeAccounts) VerifyCredentials(_ context.Context, email, rawPassword string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok || acc.password != rawPassword {
		return nil, service.ErrInvalidCredentials
	}
	return acc.user, nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	acc, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return acc.user, nil
}

// fakeLibrary implements Folders and Snippets with per-user scoping.
type fakeLibrary struct {
	mu                 sync.Mutex
	folders            map[string]*model.Folder
	snippets           map[string]*model.Snippet
	seq                int
	screenshotsEnabled bool
	maxScreenshotBytes int64
	lastFilter         model.SnippetFilter
	err                error
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{
		folders:            map[string]*model.Folder{},
		snippets:           map[string]*model.Snippet{},
		screenshotsEnabled: true,
		maxScreenshotBytes: 1024,
	}
}

func (f *fakeLibrary) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeLibrary) ListFolders(_ context.Context, userID string) ([]*model.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []*model.Folder
	for _, folder := range f.folders {
		if folder.UserID == userID {
			out = append(out, folder)
		}
	}
	return out, nil
}

func (f *fakeLibrary) CreateFolder(_ context.Context, userID string, req model.FolderCreateRequest) (*model.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if strings.TrimSpace(req.Name) == "" {
		return nil, &service.ValidationError{Field: "name", Message: "is required"}
	}
	folder := &model.Folder{ID: f.nextID("folder"), UserID: userID, Name: req.Name, Description: req.Description}
	f.folders[folder.ID] = folder
	return folder, nil
}

func (f *fakeLibrary) DeleteFolder(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	folder, ok := f.folders[id]
	if !ok || folder.UserID != userID {
		return service.ErrFolderNotFound
	}
	delete(f.folders, id)
	return nil
}

func (f *fakeLibrary) ListSnippets(_ context.Context, userID string, filter model.SnippetFilter) ([]*model.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	var out []*model.Snippet
	for _, s := range f.snippets {
		if s.UserID != userID {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(s.Title), strings.ToLower(filter.Query)) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeLibrary) GetSnippet(_ context.Context, userID, id string) (*model.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snippets[id]
	if !ok || s.UserID != userID {
		return nil, service.ErrSnippetNotFound
	}
	return s, nil
}

func (f *fakeLibrary) CreateSnippet(_ context.Context, userID string, input service.CreateSnippetInput) (*model.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, &service.ValidationError{Field: "title", Message: "is required"}
	}
	if input.FolderID != "" {
		folder, ok := f.folders[input.FolderID]
		if !ok || folder.UserID != userID {
			return nil, service.ErrFolderNotFound
		}
	}

	s := &model.Snippet{
		ID:       f.nextID("snippet"),
		UserID:   userID,
		Title:    input.Title,
		Language: input.Language,
	}
	if input.Code != "" {
		code := input.Code
		s.Code = &code
	}
	if input.Screenshot != nil {
		if !f.screenshotsEnabled {
			return nil, service.ErrScreenshotsDisabled
		}
		if !bytes.HasPrefix(input.Screenshot.Data, pngHeader) {
			return nil, service.ErrUnsupportedImage
		}
		key := "users/" + userID + "/" + input.Screenshot.Filename
		url := "https://objects.test/" + key
		s.ScreenshotKey = &key
		s.ScreenshotURL = &url
	}
	f.snippets[s.ID] = s
	return s, nil
}

func (f *fakeLibrary) DeleteSnippet(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snippets[id]
	if !ok || s.UserID != userID {
		return service.ErrSnippetNotFound
	}
	delete(f.snippets, id)
	return nil
}

func (f *fakeLibrary) MaxScreenshotBytes() int64 {
	return f.maxScreenshotBytes
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n")
