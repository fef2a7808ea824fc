package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/snipvault/snipvault/internal/model"
)

// ErrFolderNotFound is returned when no folder matches both id and owner.
var ErrFolderNotFound = errors.New("folder not found")

// ListFolders returns the user's folders ordered by name.
func (r *Repository) ListFolders(ctx context.Context, userID string) ([]*model.Folder, error) {
	query := `
		SELECT id, user_id, name, description, created_at, updated_at
		FROM folders
		WHERE user_id = $1
		ORDER BY name ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	defer rows.Close()

	folders := make([]*model.Folder, 0)
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		folders = append(folders, folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating folders: %w", err)
	}

	return folders, nil
}

// CreateFolder inserts a new folder.
func (r *Repository) CreateFolder(ctx context.Context, folder *model.Folder) error {
	query := `
		INSERT INTO folders (id, user_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		folder.ID,
		folder.UserID,
		folder.Name,
		folder.Description,
		folder.CreatedAt,
		folder.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	return nil
}

// DeleteFolder removes a folder owned by userID. Snippets inside it are kept
// and detached by the folder_id foreign key.
func (r *Repository) DeleteFolder(ctx context.Context, userID, id string) error {
	query := `DELETE FROM folders WHERE id = $1 AND user_id = $2`

	result, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrFolderNotFound
	}

	return nil
}

func scanFolder(row pgx.Row) (*model.Folder, error) {
	var folder model.Folder
	err := row.Scan(
		&folder.ID,
		&folder.UserID,
		&folder.Name,
		&folder.Description,
		&folder.CreatedAt,
		&folder.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &folder, nil
}
