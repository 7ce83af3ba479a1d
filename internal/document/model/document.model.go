package model

import "time"

// SharedEntry records one collaborator granted persistent access through a
// redeemed share link. A user appears at most once per document.
type SharedEntry struct {
	UserID     string `json:"user_id"`
	GrantToken string `json:"-"`
}

type Document struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Content    string        `json:"content"`
	OwnerID    string        `json:"owner_id"`
	SharedWith []SharedEntry `json:"shared_with"`
	ShareToken string        `json:"-"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// IsSharedWith reports whether userID holds a persistent collaborator grant.
func (d *Document) IsSharedWith(userID string) bool {
	for _, s := range d.SharedWith {
		if s.UserID == userID {
			return true
		}
	}
	return false
}

type DocumentSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Snippet   string    `json:"snippet"`
	IsOwner   bool      `json:"is_owner"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateDocRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type CreateDocResponse struct {
	DocID string `json:"document_id"`
}

type UpdateContentRequest struct {
	Content string `json:"content"`
}

type UpdateTitleRequest struct {
	Title string `json:"title"`
}

type ShareResponse struct {
	ShareToken string `json:"share_token"`
}

type RedeemRequest struct {
	ShareToken string `json:"share_token"`
}
