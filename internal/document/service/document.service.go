package service

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"kolabdok/internal/document/model"
	"kolabdok/internal/document/repository"
	"kolabdok/internal/token"
	"kolabdok/socket"
)

var (
	ErrNotAuthorized    = errors.New("not authorized")
	ErrDocumentNotFound = errors.New("document not found")
)

type Access int

const (
	AccessRead Access = iota
	AccessWrite
)

type DocumentService struct {
	Repo   *repository.DocumentRepository
	Hub    *socket.Hub
	Tokens *token.Service
}

func NewDocumentService(repo *repository.DocumentRepository, hub *socket.Hub, tokens *token.Service) *DocumentService {
	return &DocumentService{Repo: repo, Hub: hub, Tokens: tokens}
}

// Authorize decides whether userID may access doc. The owner and every
// shared collaborator get full read/write; everyone else is denied.
func (s *DocumentService) Authorize(userID string, doc *model.Document, access Access) error {
	if doc.OwnerID == userID {
		return nil
	}
	if doc.IsSharedWith(userID) {
		return nil
	}
	return ErrNotAuthorized
}

func (s *DocumentService) Create(userID, title, content string) (string, error) {
	if title == "" {
		title = "Untitled Document"
	}
	docID := uuid.NewString()
	if err := s.Repo.Create(docID, title, content, userID); err != nil {
		return "", err
	}
	return docID, nil
}

func (s *DocumentService) Get(userID, docID string) (*model.Document, error) {
	doc, err := s.Repo.Get(docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	if err := s.Authorize(userID, doc, AccessRead); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) List(userID string) ([]model.DocumentSummary, error) {
	docs, err := s.Repo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.DocumentSummary, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, model.DocumentSummary{
			ID:        doc.ID,
			Title:     doc.Title,
			Snippet:   snippet(doc.Content),
			IsOwner:   doc.OwnerID == userID,
			UpdatedAt: doc.UpdatedAt,
		})
	}
	return summaries, nil
}

// ReplaceContent persists new content for an authorized writer and fans it
// out to any live subscribers of the document's collaboration session.
func (s *DocumentService) ReplaceContent(userID, docID, content string) (time.Time, error) {
	doc, err := s.Get(userID, docID)
	if err != nil {
		return time.Time{}, err
	}
	if err := s.Authorize(userID, doc, AccessWrite); err != nil {
		return time.Time{}, err
	}

	updatedAt, err := s.Repo.ReplaceContent(docID, content)
	if err != nil {
		return time.Time{}, err
	}
	s.Hub.BroadcastContentUpdate(docID, userID, content)
	return updatedAt, nil
}

func (s *DocumentService) Rename(userID, docID, title string) error {
	rows, err := s.Repo.UpdateTitle(docID, title, userID)
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := s.Repo.Get(docID); errors.Is(err, sql.ErrNoRows) {
			return ErrDocumentNotFound
		}
		return ErrNotAuthorized
	}
	return nil
}

func (s *DocumentService) Delete(userID, docID string) error {
	doc, err := s.Repo.Get(docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDocumentNotFound
		}
		return err
	}
	if doc.OwnerID != userID {
		return ErrNotAuthorized
	}

	if err := s.Repo.Delete(docID); err != nil {
		return err
	}
	s.Hub.RemoveDocument(docID)
	return nil
}

// Share issues a fresh share token for the document and stores it as the
// single outstanding link. A previously issued link stops working for new
// redemptions; collaborators who already redeemed it keep their access.
func (s *DocumentService) Share(userID, docID string) (string, error) {
	doc, err := s.Repo.Get(docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrDocumentNotFound
		}
		return "", err
	}
	if doc.OwnerID != userID {
		return "", ErrNotAuthorized
	}

	shareToken, err := s.Tokens.IssueShareToken(docID)
	if err != nil {
		return "", err
	}
	if err := s.Repo.SetShareToken(docID, shareToken); err != nil {
		return "", err
	}
	return shareToken, nil
}

// RedeemShareToken grants the caller persistent access to the document the
// token names. Redeeming the same token twice, or redeeming as the owner,
// changes nothing; the document is returned either way.
func (s *DocumentService) RedeemShareToken(userID, shareToken string) (*model.Document, error) {
	claims, err := s.Tokens.VerifyShare(shareToken)
	if err != nil {
		return nil, err
	}

	doc, err := s.Repo.Get(claims.DocumentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	if doc.OwnerID == userID || doc.IsSharedWith(userID) {
		return doc, nil
	}

	if err := s.Repo.AddShare(doc.ID, userID, shareToken); err != nil {
		return nil, err
	}
	doc.SharedWith = append(doc.SharedWith, model.SharedEntry{UserID: userID, GrantToken: shareToken})
	return doc, nil
}

// RemoveCollaborator revokes a collaborator's grant. Subsequent Authorize
// calls for that user are denied.
func (s *DocumentService) RemoveCollaborator(ownerID, docID, userID string) error {
	doc, err := s.Repo.Get(docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDocumentNotFound
		}
		return err
	}
	if doc.OwnerID != ownerID {
		return ErrNotAuthorized
	}
	return s.Repo.RemoveShare(docID, userID)
}

func snippet(content string) string {
	s := strings.TrimSpace(strings.ReplaceAll(content, "\n", " "))
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}
