package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/snipvault/snipvault/internal/model"
)

// ErrSnippetNotFound is returned when no snippet matches both id and owner.
var ErrSnippetNotFound = errors.New("snippet not found")

const snippetSelect = `
	SELECT s.id, s.user_id, s.folder_id, f.name, s.title, s.description, s.code,
	       s.language, s.screenshot_key, s.created_at, s.updated_at
	FROM code_snippets s
	LEFT JOIN folders f ON f.id = s.folder_id
`

// ListSnippets returns the user's snippets, newest first.
func (r *Repository) ListSnippets(ctx context.Context, userID string, filter model.SnippetFilter) ([]*model.Snippet, error) {
	query := snippetSelect + ` WHERE s.user_id = $1`
	args := []any{userID}
	argIndex := 2

	if filter.Query != "" {
		query += fmt.Sprintf(
			` AND (s.title ILIKE $%d ESCAPE '\' OR s.description ILIKE $%d ESCAPE '\' OR s.code ILIKE $%d ESCAPE '\')`,
			argIndex, argIndex, argIndex,
		)
		args = append(args, "%"+escapeLike(filter.Query)+"%")
		argIndex++
	}

	if filter.FolderID != "" {
		query += fmt.Sprintf(" AND s.folder_id = $%d", argIndex)
		args = append(args, filter.FolderID)
		argIndex++
	}

	if len(filter.Languages) > 0 {
		query += fmt.Sprintf(" AND s.language = ANY($%d)", argIndex)
		args = append(args, pq.Array(filter.Languages))
	}

	query += " ORDER BY s.created_at DESC, s.id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snippets: %w", err)
	}
	defer rows.Close()

	snippets := make([]*model.Snippet, 0)
	for rows.Next() {
		snippet, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snippet: %w", err)
		}
		snippets = append(snippets, snippet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snippets: %w", err)
	}

	return snippets, nil
}

// GetSnippet retrieves a snippet owned by userID.
func (r *Repository) GetSnippet(ctx context.Context, userID, id string) (*model.Snippet, error) {
	query := snippetSelect + ` WHERE s.id = $1 AND s.user_id = $2`

	snippet, err := scanSnippet(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnippetNotFound
		}
		return nil, fmt.Errorf("failed to get snippet: %w", err)
	}

	return snippet, nil
}

// CreateSnippet inserts a snippet. When FolderID is set the folder must belong
// to the same user; the check and the insert are one statement, and a
// mismatch returns ErrFolderNotFound. FolderName is filled on success.
func (r *Repository) CreateSnippet(ctx context.Context, snippet *model.Snippet) error {
	query := `
		WITH inserted AS (
			INSERT INTO code_snippets
				(id, user_id, folder_id, title, description, code, language, screenshot_key, created_at, updated_at)
			SELECT $1::varchar, $2::varchar, $3::varchar, $4::varchar, $5::text, $6::text,
			       $7::varchar, $8::text, $9::timestamptz, $10::timestamptz
			WHERE $3::varchar IS NULL
			   OR EXISTS (SELECT 1 FROM folders WHERE id = $3::varchar AND user_id = $2::varchar)
			RETURNING folder_id
		)
		SELECT f.name
		FROM inserted i
		LEFT JOIN folders f ON f.id = i.folder_id
	`

	var folderName *string
	err := r.pool.QueryRow(ctx, query,
		snippet.ID,
		snippet.UserID,
		snippet.FolderID,
		snippet.Title,
		snippet.Description,
		snippet.Code,
		snippet.Language,
		snippet.ScreenshotKey,
		snippet.CreatedAt,
		snippet.UpdatedAt,
	).Scan(&folderName)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrFolderNotFound
		}
		return fmt.Errorf("failed to create snippet: %w", err)
	}

	snippet.FolderName = folderName
	return nil
}

// DeleteSnippet removes a snippet owned by userID and returns its screenshot
// object key, if any.
func (r *Repository) DeleteSnippet(ctx context.Context, userID, id string) (*string, error) {
	query := `
		DELETE FROM code_snippets
		WHERE id = $1 AND user_id = $2
		RETURNING screenshot_key
	`

	var key *string
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(&key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnippetNotFound
		}
		return nil, fmt.Errorf("failed to delete snippet: %w", err)
	}

	return key, nil
}

func scanSnippet(row pgx.Row) (*model.Snippet, error) {
	var snippet model.Snippet
	err := row.Scan(
		&snippet.ID,
		&snippet.UserID,
		&snippet.FolderID,
		&snippet.FolderName,
		&snippet.Title,
		&snippet.Description,
		&snippet.Code,
		&snippet.Language,
		&snippet.ScreenshotKey,
		&snippet.CreatedAt,
		&snippet.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &snippet, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
