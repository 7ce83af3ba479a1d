package repository

import (
	"database/sql"
	"time"

	"kolabdok/internal/document/model"
	"kolabdok/pkg/logger"
)

type DocumentRepository struct {
	DB *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{DB: db}
}

func (r *DocumentRepository) Create(id, title, content, ownerID string) error {
	_, err := r.DB.Exec(`INSERT INTO documents (id, title, content, owner_id, created_at, updated_at) VALUES ($1, $2, $3, $4, NOW(), NOW())`,
		id, title, content, ownerID)
	if err != nil {
		logger.Sugar.Errorf("Failed to create document: %v", err)
	}
	return err
}

// Get loads a document together with its collaborator grants. Returns
// sql.ErrNoRows when the document does not exist.
func (r *DocumentRepository) Get(docID string) (*model.Document, error) {
	var doc model.Document
	var shareToken sql.NullString
	err := r.DB.QueryRow(
		"SELECT id, title, content, owner_id, share_token, created_at, updated_at FROM documents WHERE id = $1", docID,
	).Scan(&doc.ID, &doc.Title, &doc.Content, &doc.OwnerID, &shareToken, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to load document %s: %v", docID, err)
		}
		return nil, err
	}
	doc.ShareToken = shareToken.String

	rows, err := r.DB.Query("SELECT user_id, grant_token FROM document_shares WHERE document_id = $1", docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to load shares for doc %s: %v", docID, err)
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var entry model.SharedEntry
		if err := rows.Scan(&entry.UserID, &entry.GrantToken); err != nil {
			return nil, err
		}
		doc.SharedWith = append(doc.SharedWith, entry)
	}
	return &doc, rows.Err()
}

// ReplaceContent swaps the stored content wholesale and returns the new
// last-updated timestamp.
func (r *DocumentRepository) ReplaceContent(docID, content string) (time.Time, error) {
	var updatedAt time.Time
	err := r.DB.QueryRow(
		`UPDATE documents SET content = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at`,
		content, docID,
	).Scan(&updatedAt)
	if err != nil {
		logger.Sugar.Errorf("Failed to replace content for doc %s: %v", docID, err)
	}
	return updatedAt, err
}

func (r *DocumentRepository) UpdateTitle(docID, title, ownerID string) (int64, error) {
	result, err := r.DB.Exec("UPDATE documents SET title = $1, updated_at = NOW() WHERE id = $2 AND owner_id = $3",
		title, docID, ownerID)
	if err != nil {
		logger.Sugar.Errorf("Failed to update title for doc %s: %v", docID, err)
		return 0, err
	}
	return result.RowsAffected()
}

// SetShareToken replaces the document's single outstanding share link.
func (r *DocumentRepository) SetShareToken(docID, shareToken string) error {
	_, err := r.DB.Exec("UPDATE documents SET share_token = $1 WHERE id = $2", shareToken, docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to set share token for doc %s: %v", docID, err)
	}
	return err
}

// AddShare grants userID persistent access. Conflict-free on repeat grants,
// so sharedWith never contains duplicates.
func (r *DocumentRepository) AddShare(docID, userID, grantToken string) error {
	_, err := r.DB.Exec(`INSERT INTO document_shares (document_id, user_id, grant_token) VALUES ($1, $2, $3)
		ON CONFLICT (document_id, user_id) DO NOTHING`, docID, userID, grantToken)
	if err != nil {
		logger.Sugar.Errorf("Failed to add share for user %s on doc %s: %v", userID, docID, err)
	}
	return err
}

func (r *DocumentRepository) RemoveShare(docID, userID string) error {
	_, err := r.DB.Exec("DELETE FROM document_shares WHERE document_id = $1 AND user_id = $2", docID, userID)
	if err != nil {
		logger.Sugar.Errorf("Failed to remove share for user %s on doc %s: %v", userID, docID, err)
	}
	return err
}

func (r *DocumentRepository) Delete(docID string) error {
	_, err := r.DB.Exec("DELETE FROM documents WHERE id = $1", docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete doc %s: %v", docID, err)
	}
	return err
}

// ListByUser returns documents the user owns or holds a grant on, most
// recently updated first.
func (r *DocumentRepository) ListByUser(userID string) ([]model.Document, error) {
	query := `
		SELECT id, title, content, owner_id, updated_at FROM documents WHERE owner_id = $1
		UNION
		SELECT d.id, d.title, d.content, d.owner_id, d.updated_at
		FROM documents d JOIN document_shares s ON d.id = s.document_id WHERE s.user_id = $1
		ORDER BY updated_at DESC`
	rows, err := r.DB.Query(query, userID)
	if err != nil {
		logger.Sugar.Errorf("Failed to list documents for user %s: %v", userID, err)
		return nil, err
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var doc model.Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.OwnerID, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
