package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/snipvault/snipvault/internal/auth"
	"github.com/snipvault/snipvault/internal/cache"
	"github.com/snipvault/snipvault/internal/model"
	"github.com/snipvault/snipvault/internal/repository"
)

// memUserRepo mimics the users table, including the unique email constraint.
type memUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*model.User
	byEmail map[string]string
	reads   int
	err     error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*model.User{}, byEmail: map[string]string{}}
}

func (r *memUserRepo) CreateUser(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.byEmail[user.Email]; ok {
		return repository.ErrEmailExists
	}
	c := *user
	r.byID[user.ID] = &c
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *memUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *memUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	if r.err != nil {
		return nil, r.err
	}
	id, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	c := *r.byID[id]
	return &c, nil
}

func (r *memUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *memUserRepo) delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		delete(r.byEmail, u.Email)
		delete(r.byID, id)
	}
}

// memUserCache mimics cache.Cache for users, negative entries included.
type memUserCache struct {
	mu      sync.Mutex
	entries map[string]*model.User
	ttls    map[string]time.Duration
}

func newMemUserCache() *memUserCache {
	return &memUserCache{entries: map[string]*model.User{}, ttls: map[string]time.Duration{}}
}

// expire drops id as if its TTL had elapsed.
func (c *memUserCache) expire(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	delete(c.ttls, id)
}

func (c *memUserCache) GetUser(_ context.Context, id string) (*model.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.entries[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return u, nil
}

func (c *memUserCache) SetUser(_ context.Context, user *model.User, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[user.ID] = user.Public()
	c.ttls[user.ID] = ttl
	return nil
}

func (c *memUserCache) SetUserNotFound(_ context.Context, id string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = nil
	c.ttls[id] = ttl
	return nil
}

// memSnippetRepo mimics the folders and code_snippets tables.
type memSnippetRepo struct {
	mu       sync.Mutex
	folders  map[string]*model.Folder
	snippets map[string]*model.Snippet
	err      error
}

func newMemSnippetRepo() *memSnippetRepo {
	return &memSnippetRepo{folders: map[string]*model.Folder{}, snippets: map[string]*model.Snippet{}}
}

func (r *memSnippetRepo) ListFolders(_ context.Context, userID string) ([]*model.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]*model.Folder, 0)
	for _, f := range r.folders {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memSnippetRepo) CreateFolder(_ context.Context, folder *model.Folder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.folders[folder.ID] = folder
	return nil
}

func (r *memSnippetRepo) DeleteFolder(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[id]
	if !ok || f.UserID != userID {
		return repository.ErrFolderNotFound
	}
	delete(r.folders, id)
	for _, s := range r.snippets {
		if s.FolderID != nil && *s.FolderID == id {
			s.FolderID = nil
			s.FolderName = nil
		}
	}
	return nil
}

func (r *memSnippetRepo) ListSnippets(_ context.Context, userID string, filter model.SnippetFilter) ([]*model.Snippet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]*model.Snippet, 0)
	for _, s := range r.snippets {
		if s.UserID != userID {
			continue
		}
		if filter.FolderID != "" && (s.FolderID == nil || *s.FolderID != filter.FolderID) {
			continue
		}
		if len(filter.Languages) > 0 && !contains(filter.Languages, s.Language) {
			continue
		}
		if filter.Query != "" && !matchesQuery(s, filter.Query) {
			continue
		}
		c := *s
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memSnippetRepo) GetSnippet(_ context.Context, userID, id string) (*model.Snippet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.snippets[id]
	if !ok || s.UserID != userID {
		return nil, repository.ErrSnippetNotFound
	}
	c := *s
	return &c, nil
}

func (r *memSnippetRepo) CreateSnippet(_ context.Context, snippet *model.Snippet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if snippet.FolderID != nil {
		f, ok := r.folders[*snippet.FolderID]
		if !ok || f.UserID != snippet.UserID {
			return repository.ErrFolderNotFound
		}
		name := f.Name
		snippet.FolderName = &name
	}
	c := *snippet
	r.snippets[snippet.ID] = &c
	return nil
}

func (r *memSnippetRepo) DeleteSnippet(_ context.Context, userID, id string) (*string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.snippets[id]
	if !ok || s.UserID != userID {
		return nil, repository.ErrSnippetNotFound
	}
	delete(r.snippets, id)
	return s.ScreenshotKey, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func matchesQuery(s *model.Snippet, q string) bool {
	q = strings.ToLower(q)
	fields := []string{s.Title}
	if s.Description != nil {
		fields = append(fields, *s.Description)
	}
	if s.Code != nil {
		fields = append(fields, *s.Code)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// memObjects is an in-memory ObjectStore.
type memObjects struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
	putErr  error
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string]string{}, types: map[string]string{}}
}

func (o *memObjects) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	if o.putErr != nil {
		return o.putErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[key] = string(b)
	o.types[key] = contentType
	return nil
}

func (o *memObjects) PresignGet(_ context.Context, key string) (string, error) {
	return "https://objects.test/" + key + "?sig=x", nil
}

func (o *memObjects) Delete(_ context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, key)
	return nil
}

func (o *memObjects) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.objects)
}

// testClock is a manually advanced time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestHasher(t *testing.T) *auth.PasswordHasher {
	t.Helper()
	h, err := auth.NewPasswordHasher(auth.AlgorithmArgon2id, auth.WithArgon2Params(auth.Argon2Params{
		Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16,
	}))
	if err != nil {
		t.Fatalf("NewPasswordHasher: %v", err)
	}
	return h
}
