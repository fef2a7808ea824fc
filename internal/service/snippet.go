package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"
	"github.com/snipvault/snipvault/internal/metrics"
	"github.com/snipvault/snipvault/internal/model"
	"github.com/snipvault/snipvault/internal/repository"
	"github.com/snipvault/snipvault/internal/storage"
)

const (
	maxFolderNameLength        = 100
	maxFolderDescriptionLength = 1000
	maxTitleLength             = 200
	maxDescriptionLength       = 2000
	maxCodeBytes               = 256 << 10

	// DefaultMaxScreenshotBytes caps a single screenshot upload.
	DefaultMaxScreenshotBytes = 5 << 20
)

var languageRegex = regexp.MustCompile(`^[a-z0-9+#.-]{1,32}$`)

// SnippetRepository is the persistence the snippet service needs. Every
// method is scoped by owner.
type SnippetRepository interface {
	ListFolders(ctx context.Context, userID string) ([]*model.Folder, error)
	CreateFolder(ctx context.Context, folder *model.Folder) error
	DeleteFolder(ctx context.Context, userID, id string) error
	ListSnippets(ctx context.Context, userID string, filter model.SnippetFilter) ([]*model.Snippet, error)
	GetSnippet(ctx context.Context, userID, id string) (*model.Snippet, error)
	CreateSnippet(ctx context.Context, snippet *model.Snippet) error
	DeleteSnippet(ctx context.Context, userID, id string) (*string, error)
}

// ObjectStore keeps screenshot bytes.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// SnippetServiceConfig holds optional collaborators of a SnippetService.
// A nil Objects disables screenshots.
type SnippetServiceConfig struct {
	Objects            ObjectStore
	MaxScreenshotBytes int64
	Recorder           metrics.Recorder
	Logger             *slog.Logger
	Now                func() time.Time
}

// SnippetService handles folders and snippets for an authenticated user.
type SnippetService struct {
	repo               SnippetRepository
	objects            ObjectStore
	maxScreenshotBytes int64
	metrics            metrics.Recorder
	logger             *slog.Logger
	now                func() time.Time
}

// NewSnippetService creates a new SnippetService.
func NewSnippetService(repo SnippetRepository, cfg SnippetServiceConfig) *SnippetService {
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.NewNoop()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxScreenshotBytes <= 0 {
		cfg.MaxScreenshotBytes = DefaultMaxScreenshotBytes
	}
	return &SnippetService{
		repo:               repo,
		objects:            cfg.Objects,
		maxScreenshotBytes: cfg.MaxScreenshotBytes,
		metrics:            cfg.Recorder,
		logger:             cfg.Logger,
		now:                cfg.Now,
	}
}

// ScreenshotsEnabled reports whether uploads are accepted.
func (s *SnippetService) ScreenshotsEnabled() bool {
	return s.objects != nil
}

// MaxScreenshotBytes is the largest accepted screenshot.
func (s *SnippetService) MaxScreenshotBytes() int64 {
	return s.maxScreenshotBytes
}

// ListFolders returns the user's folders ordered by name.
func (s *SnippetService) ListFolders(ctx context.Context, userID string) ([]*model.Folder, error) {
	folders, err := s.repo.ListFolders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return folders, nil
}

// CreateFolder creates a folder owned by userID.
func (s *SnippetService) CreateFolder(ctx context.Context, userID string, req model.FolderCreateRequest) (*model.Folder, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	if utf8.RuneCountInString(name) > maxFolderNameLength {
		return nil, invalid("name", fmt.Sprintf("must be at most %d characters", maxFolderNameLength))
	}

	description := trimOptional(req.Description)
	if description != nil && utf8.RuneCountInString(*description) > maxFolderDescriptionLength {
		return nil, invalid("description", fmt.Sprintf("must be at most %d characters", maxFolderDescriptionLength))
	}

	now := s.now().UTC()
	folder := &model.Folder{
		ID:          ulid.Make().String(),
		UserID:      userID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateFolder(ctx, folder); err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	s.metrics.IncFolderCreated()
	return folder, nil
}

// DeleteFolder deletes one of the user's folders. Its snippets stay and
// lose their folder.
func (s *SnippetService) DeleteFolder(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteFolder(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrFolderNotFound) {
			return ErrFolderNotFound
		}
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	s.metrics.IncFolderDeleted()
	return nil
}

// ListSnippets returns the user's snippets, newest first.
func (s *SnippetService) ListSnippets(ctx context.Context, userID string, filter model.SnippetFilter) ([]*model.Snippet, error) {
	snippets, err := s.repo.ListSnippets(ctx, userID, normalizeFilter(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to list snippets: %w", err)
	}

	for _, snippet := range snippets {
		s.attachScreenshotURL(ctx, snippet)
	}
	return snippets, nil
}

// GetSnippet returns one of the user's snippets.
func (s *SnippetService) GetSnippet(ctx context.Context, userID, id string) (*model.Snippet, error) {
	snippet, err := s.repo.GetSnippet(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrSnippetNotFound) {
			return nil, ErrSnippetNotFound
		}
		return nil, fmt.Errorf("failed to get snippet: %w", err)
	}

	s.attachScreenshotURL(ctx, snippet)
	return snippet, nil
}

// Screenshot is an uploaded image attached to a new snippet.
type Screenshot struct {
	Filename string
	Data     []byte
}

// CreateSnippetInput defines input for creating a snippet.
type CreateSnippetInput struct {
	Title       string
	Description string
	Code        string
	Language    string
	FolderID    string
	Screenshot  *Screenshot
}

// CreateSnippet creates a snippet owned by userID. A folder, when given,
// must belong to the same user.
func (s *SnippetService) CreateSnippet(ctx context.Context, userID string, input CreateSnippetInput) (*model.Snippet, error) {
	snippet, err := s.buildSnippet(userID, input)
	if err != nil {
		return nil, err
	}

	if input.Screenshot != nil {
		key, err := s.uploadScreenshot(ctx, userID, input.Screenshot)
		if err != nil {
			return nil, err
		}
		snippet.ScreenshotKey = &key
	}

	if err := s.repo.CreateSnippet(ctx, snippet); err != nil {
		s.discardScreenshot(ctx, snippet)
		if errors.Is(err, repository.ErrFolderNotFound) {
			return nil, ErrFolderNotFound
		}
		return nil, fmt.Errorf("failed to create snippet: %w", err)
	}

	s.metrics.IncSnippetCreated()
	s.attachScreenshotURL(ctx, snippet)
	return snippet, nil
}

// DeleteSnippet deletes one of the user's snippets and its screenshot.
func (s *SnippetService) DeleteSnippet(ctx context.Context, userID, id string) error {
	key, err := s.repo.DeleteSnippet(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrSnippetNotFound) {
			return ErrSnippetNotFound
		}
		return fmt.Errorf("failed to delete snippet: %w", err)
	}

	s.metrics.IncSnippetDeleted()
	s.discardScreenshot(ctx, &model.Snippet{ID: id, ScreenshotKey: key})
	return nil
}

func (s *SnippetService) buildSnippet(userID string, input CreateSnippetInput) (*model.Snippet, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, invalid("title", "is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, invalid("title", fmt.Sprintf("must be at most %d characters", maxTitleLength))
	}

	description := trimOptional(&input.Description)
	if description != nil && utf8.RuneCountInString(*description) > maxDescriptionLength {
		return nil, invalid("description", fmt.Sprintf("must be at most %d characters", maxDescriptionLength))
	}

	var code *string
	if strings.TrimSpace(input.Code) != "" {
		c := input.Code
		code = &c
	}
	if code != nil && len(*code) > maxCodeBytes {
		return nil, invalid("code", "is too long")
	}
	if code == nil && input.Screenshot == nil {
		return nil, invalid("code", "code or a screenshot is required")
	}

	language := strings.ToLower(strings.TrimSpace(input.Language))
	if language == "" {
		language = model.DefaultLanguage
	}
	if !languageRegex.MatchString(language) {
		return nil, invalid("language", "is not a valid language identifier")
	}

	var folderID *string
	if id := strings.TrimSpace(input.FolderID); id != "" {
		folderID = &id
	}

	now := s.now().UTC()
	return &model.Snippet{
		ID:          ulid.Make().String(),
		UserID:      userID,
		FolderID:    folderID,
		Title:       title,
		Description: description,
		Code:        code,
		Language:    language,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *SnippetService) uploadScreenshot(ctx context.Context, userID string, shot *Screenshot) (string, error) {
	if s.objects == nil {
		return "", ErrScreenshotsDisabled
	}
	if len(shot.Data) == 0 {
		return "", invalid("screenshot", "is empty")
	}
	if int64(len(shot.Data)) > s.maxScreenshotBytes {
		return "", ErrScreenshotTooLarge
	}

	mtype := mimetype.Detect(shot.Data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", ErrUnsupportedImage
	}

	key := storage.ScreenshotKey(userID, s.now(), mtype.Extension())
	if err := s.objects.Put(ctx, key, bytes.NewReader(shot.Data), int64(len(shot.Data)), mtype.String()); err != nil {
		return "", fmt.Errorf("failed to store screenshot: %w", err)
	}

	s.metrics.IncScreenshotUploaded()
	return key, nil
}

// discardScreenshot removes the snippet's object. Failures leave an orphan
// object and are only logged.
func (s *SnippetService) discardScreenshot(ctx context.Context, snippet *model.Snippet) {
	if s.objects == nil || !snippet.HasScreenshot() {
		return
	}
	if err := s.objects.Delete(ctx, *snippet.ScreenshotKey); err != nil {
		s.logger.WarnContext(ctx, "failed to delete screenshot",
			slog.String("snippet_id", snippet.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *SnippetService) attachScreenshotURL(ctx context.Context, snippet *model.Snippet) {
	if s.objects == nil || !snippet.HasScreenshot() {
		return
	}
	url, err := s.objects.PresignGet(ctx, *snippet.ScreenshotKey)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to presign screenshot",
			slog.String("snippet_id", snippet.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	snippet.ScreenshotURL = &url
}

func normalizeFilter(filter model.SnippetFilter) model.SnippetFilter {
	out := model.SnippetFilter{
		Query:    strings.TrimSpace(filter.Query),
		FolderID: strings.TrimSpace(filter.FolderID),
	}

	seen := make(map[string]struct{}, len(filter.Languages))
	for _, lang := range filter.Languages {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" {
			continue
		}
		if _, ok := seen[lang]; ok {
			continue
		}
		seen[lang] = struct{}{}
		out.Languages = append(out.Languages, lang)
	}
	return out
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
