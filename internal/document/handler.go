package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kolabdok/internal/document/model"
	"kolabdok/internal/document/service"
	"kolabdok/internal/export"
	"kolabdok/internal/token"
	"kolabdok/middleware"
	"kolabdok/pkg/logger"
)

type DocumentHandler struct {
	Service *service.DocumentService
}

func NewDocumentHandler(service *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{Service: service}
}

func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserIDKey).(string)

	var req model.CreateDocRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // Ignore error, default to empty

	docID, err := h.Service.Create(userID, req.Title, req.Content)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to create document: %v", err)
		http.Error(w, "Failed to create document", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(model.CreateDocResponse{DocID: docID})
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserIDKey).(string)

	docs, err := h.Service.List(userID)
	if err != nil {
		logger.Sugar.Errorf("Error fetching documents: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(docs)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserIDKey).(string)
	docID := chi.URLParam(r, "docID")

	doc, err := h.Service.Get(userID, docID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

func (h *DocumentHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserIDKey).(string)
	docID := chi.URLParam(r, "docID")

	var req model.UpdateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	updatedAt, err := h.Service.ReplaceContent(userID, docID, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"updated_at": updatedAt})
}

func (h *DocumentHandler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserIDKey).(string)
	docID := chi.URLParam(r, "docID")

	var req model.UpdateTitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Service.Rename(userID, docID, req.Title); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Document updated successfully"))
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserIDKey).(string)
	docID := chi.URLParam(r, "docID")

	if err := h.Service.Delete(userID, docID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Document deleted successfully"))
}

func (h *DocumentHandler) ShareDocument(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserIDKey).(string)
	docID := chi.URLParam(r, "docID")

	shareToken, err := h.Service.Share(userID, docID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(model.ShareResponse{ShareToken: shareToken})
}

func (h *DocumentHandler) AccessShared(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserIDKey).(string)

	var req model.RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ShareToken == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	doc, err := h.Service.RedeemShareToken(userID, req.ShareToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

func (h *DocumentHandler) RemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	ownerID := r.Context().Value(middleware.UserIDKey).(string)
	docID := chi.URLParam(r, "docID")
	userID := chi.URLParam(r, "userID")

	if err := h.Service.RemoveCollaborator(ownerID, docID, userID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Collaborator removed"))
}

// Export endpoints are owner-only, matching the sharing rules of the
// download links in the UI.
func (h *DocumentHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Title+".pdf"))
	if err := export.PDF(w, doc.Title, doc.Content); err != nil {
		logger.Sugar.Errorf("Failed to render PDF for doc %s: %v", doc.ID, err)
	}
}

func (h *DocumentHandler) ExportDOCX(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Title+".docx"))
	if err := export.DOCX(w, doc.Title, doc.Content); err != nil {
		logger.Sugar.Errorf("Failed to render DOCX for doc %s: %v", doc.ID, err)
	}
}

func (h *DocumentHandler) ownedDocument(w http.ResponseWriter, r *http.Request) (*model.Document, bool) {
	userID := r.Context().Value(middleware.UserIDKey).(string)
	docID := chi.URLParam(r, "docID")

	doc, err := h.Service.Get(userID, docID)
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	if doc.OwnerID != userID {
		http.Error(w, service.ErrNotAuthorized.Error(), http.StatusForbidden)
		return nil, false
	}
	return doc, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrDocumentNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrNotAuthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, token.ErrInvalidToken),
		errors.Is(err, token.ErrTokenExpired),
		errors.Is(err, token.ErrWrongKind):
		http.Error(w, "Invalid or expired share link", http.StatusBadRequest)
	default:
		logger.Sugar.Errorf("Handler: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
	}
}
