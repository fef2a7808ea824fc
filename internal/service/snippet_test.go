package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snipvault/snipvault/internal/metrics"
	"github.com/snipvault/snipvault/internal/model"
)

// pngHeader is enough of a PNG file for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func newTestSnippetService(repo *memSnippetRepo, objects ObjectStore, clock *testClock) (*SnippetService, *metrics.InMemoryRecorder) {
	recorder := metrics.NewInMemory()
	cfg := SnippetServiceConfig{Recorder: recorder, Now: clock.Now}
	if objects != nil {
		cfg.Objects = objects
	}
	return NewSnippetService(repo, cfg), recorder
}

func TestSnippetService_Folders(t *testing.T) {
	repo := newMemSnippetRepo()
	svc, recorder := newTestSnippetService(repo, nil, newTestClock())
	ctx := context.Background()

	desc := "  handy bits  "
	folder, err := svc.CreateFolder(ctx, "alice", model.FolderCreateRequest{Name: " Go ", Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Go", folder.Name)
	require.NotNil(t, folder.Description)
	assert.Equal(t, "handy bits", *folder.Description)

	_, err = svc.CreateFolder(ctx, "alice", model.FolderCreateRequest{Name: "Bash"})
	require.NoError(t, err)

	_, err = svc.CreateFolder(ctx, "alice", model.FolderCreateRequest{Name: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateFolder(ctx, "alice", model.FolderCreateRequest{Name: strings.Repeat("f", 101)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	folders, err := svc.ListFolders(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Equal(t, "Bash", folders[0].Name)

	bobs, err := svc.ListFolders(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, bobs)

	assert.ErrorIs(t, svc.DeleteFolder(ctx, "bob", folder.ID), ErrFolderNotFound)
	assert.NoError(t, svc.DeleteFolder(ctx, "alice", folder.ID))
	assert.ErrorIs(t, svc.DeleteFolder(ctx, "alice", folder.ID), ErrFolderNotFound)

	snap := recorder.Snapshot()
	assert.Equal(t, uint64(2), snap.FoldersCreated)
	assert.Equal(t, uint64(1), snap.FoldersDeleted)
}

func TestSnippetService_CreateSnippetValidation(t *testing.T) {
	svc, _ := newTestSnippetService(newMemSnippetRepo(), nil, newTestClock())

	tests := []struct {
		name  string
		input CreateSnippetInput
		field string
	}{
		{"missing title", CreateSnippetInput{Code: "x"}, "title"},
		{"long title", CreateSnippetInput{Title: strings.Repeat("t", 201), Code: "x"}, "title"},
		{"no content", CreateSnippetInput{Title: "t", Code: "   "}, "code"},
		{"bad language", CreateSnippetInput{Title: "t", Code: "x", Language: "not a language"}, "language"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateSnippet(context.Background(), "alice", tt.input)
			require.ErrorIs(t, err, ErrInvalidInput)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestSnippetService_CreateAndList(t *testing.T) {
	clock := newTestClock()
	repo := newMemSnippetRepo()
	svc, recorder := newTestSnippetService(repo, nil, clock)
	ctx := context.Background()

	folder, err := svc.CreateFolder(ctx, "alice", model.FolderCreateRequest{Name: "Go"})
	require.NoError(t, err)

	first, err := svc.CreateSnippet(ctx, "alice", CreateSnippetInput{
		Title:    "Reverse",
		Code:     "slices.Reverse(s)",
		Language: "Go",
		FolderID: folder.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "go", first.Language)
	require.NotNil(t, first.FolderName)
	assert.Equal(t, "Go", *first.FolderName)

	clock.Advance(time.Minute)
	second, err := svc.CreateSnippet(ctx, "alice", CreateSnippetInput{Title: "Log", Code: "console.log(1)"})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultLanguage, second.Language)
	assert.Nil(t, second.FolderID)

	_, err = svc.CreateSnippet(ctx, "bob", CreateSnippetInput{Title: "stray", Code: "x", FolderID: folder.ID})
	assert.ErrorIs(t, err, ErrFolderNotFound)

	all, err := svc.ListSnippets(ctx, "alice", model.SnippetFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")

	byLang, err := svc.ListSnippets(ctx, "alice", model.SnippetFilter{Languages: []string{" GO ", "go", ""}})
	require.NoError(t, err)
	require.Len(t, byLang, 1)
	assert.Equal(t, first.ID, byLang[0].ID)

	byQuery, err := svc.ListSnippets(ctx, "alice", model.SnippetFilter{Query: "  CONSOLE "})
	require.NoError(t, err)
	require.Len(t, byQuery, 1)
	assert.Equal(t, second.ID, byQuery[0].ID)

	bobs, err := svc.ListSnippets(ctx, "bob", model.SnippetFilter{})
	require.NoError(t, err)
	assert.Empty(t, bobs)

	assert.Equal(t, uint64(2), recorder.Snapshot().SnippetsCreated)
}

func TestSnippetService_DeleteIsOwnerScoped(t *testing.T) {
	repo := newMemSnippetRepo()
	svc, _ := newTestSnippetService(repo, nil, newTestClock())
	ctx := context.Background()

	owned, err := svc.CreateSnippet(ctx, "bob", CreateSnippetInput{Title: "mine", Code: "x"})
	require.NoError(t, err)

	// Alice knows the id but does not own the snippet.
	assert.ErrorIs(t, svc.DeleteSnippet(ctx, "alice", owned.ID), ErrSnippetNotFound)
	_, err = svc.GetSnippet(ctx, "alice", owned.ID)
	assert.ErrorIs(t, err, ErrSnippetNotFound)

	still, err := svc.GetSnippet(ctx, "bob", owned.ID)
	require.NoError(t, err)
	assert.Equal(t, owned.ID, still.ID)

	require.NoError(t, svc.DeleteSnippet(ctx, "bob", owned.ID))
	assert.ErrorIs(t, svc.DeleteSnippet(ctx, "bob", owned.ID), ErrSnippetNotFound)
}

func TestSnippetService_Screenshots(t *testing.T) {
	clock := newTestClock()
	repo := newMemSnippetRepo()
	objects := newMemObjects()
	svc, recorder := newTestSnippetService(repo, objects, clock)
	ctx := context.Background()

	snippet, err := svc.CreateSnippet(ctx, "alice", CreateSnippetInput{
		Title:      "Screenshot only",
		Screenshot: &Screenshot{Filename: "shot.png", Data: pngHeader},
	})
	require.NoError(t, err)
	require.NotNil(t, snippet.ScreenshotKey)
	assert.True(t, strings.HasPrefix(*snippet.ScreenshotKey, "users/alice/2024/05/"), *snippet.ScreenshotKey)
	assert.True(t, strings.HasSuffix(*snippet.ScreenshotKey, ".png"), *snippet.ScreenshotKey)
	require.NotNil(t, snippet.ScreenshotURL)
	assert.Contains(t, *snippet.ScreenshotURL, *snippet.ScreenshotKey)
	assert.Equal(t, "image/png", objects.types[*snippet.ScreenshotKey])
	assert.Nil(t, snippet.Code)

	got, err := svc.GetSnippet(ctx, "alice", snippet.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ScreenshotURL)

	_, err = svc.CreateSnippet(ctx, "alice", CreateSnippetInput{
		Title:      "Not an image",
		Screenshot: &Screenshot{Filename: "evil.png", Data: []byte("#!/bin/sh\necho hi\n")},
	})
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	require.NoError(t, svc.DeleteSnippet(ctx, "alice", snippet.ID))
	assert.Equal(t, 0, objects.len(), "screenshot removed with its snippet")
	assert.Equal(t, uint64(1), recorder.Snapshot().ScreenshotsUploaded)
}

func TestSnippetService_ScreenshotEdgeCases(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		svc, _ := newTestSnippetService(newMemSnippetRepo(), nil, newTestClock())
		assert.False(t, svc.ScreenshotsEnabled())
		_, err := svc.CreateSnippet(ctx, "alice", CreateSnippetInput{
			Title:      "t",
			Screenshot: &Screenshot{Data: pngHeader},
		})
		assert.ErrorIs(t, err, ErrScreenshotsDisabled)
	})

	t.Run("too large", func(t *testing.T) {
		repo := newMemSnippetRepo()
		svc := NewSnippetService(repo, SnippetServiceConfig{Objects: newMemObjects(), MaxScreenshotBytes: 8})
		_, err := svc.CreateSnippet(ctx, "alice", CreateSnippetInput{
			Title:      "t",
			Screenshot: &Screenshot{Data: pngHeader},
		})
		assert.ErrorIs(t, err, ErrScreenshotTooLarge)
	})

	t.Run("orphan removed when insert fails", func(t *testing.T) {
		repo := newMemSnippetRepo()
		objects := newMemObjects()
		svc, _ := newTestSnippetService(repo, objects, newTestClock())
		_, err := svc.CreateSnippet(ctx, "alice", CreateSnippetInput{
			Title:      "t",
			FolderID:   "missing-folder",
			Screenshot: &Screenshot{Data: pngHeader},
		})
		assert.ErrorIs(t, err, ErrFolderNotFound)
		assert.Equal(t, 0, objects.len())
	})

	t.Run("upload failure", func(t *testing.T) {
		objects := newMemObjects()
		objects.putErr = errors.New("bucket unreachable")
		svc, _ := newTestSnippetService(newMemSnippetRepo(), objects, newTestClock())
		_, err := svc.CreateSnippet(ctx, "alice", CreateSnippetInput{
			Title:      "t",
			Screenshot: &Screenshot{Data: pngHeader},
		})
		assert.ErrorIs(t, err, objects.putErr)
	})
}

func TestSnippetService_StorageFailure(t *testing.T) {
	repo := newMemSnippetRepo()
	storeErr := errors.New("connection refused")
	repo.err = storeErr
	svc, _ := newTestSnippetService(repo, nil, newTestClock())
	ctx := context.Background()

	_, err := svc.ListSnippets(ctx, "alice", model.SnippetFilter{})
	assert.ErrorIs(t, err, storeErr)
	_, err = svc.ListFolders(ctx, "alice")
	assert.ErrorIs(t, err, storeErr)
	_, err = svc.CreateSnippet(ctx, "alice", CreateSnippetInput{Title: "t", Code: "x"})
	assert.ErrorIs(t, err, storeErr)
}
