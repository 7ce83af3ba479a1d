package router

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	docHandler "kolabdok/internal/document"
	docRepository "kolabdok/internal/document/repository"
	docService "kolabdok/internal/document/service"
	"kolabdok/internal/token"
	userHandler "kolabdok/internal/user"
	userRepository "kolabdok/internal/user/repository"
	userService "kolabdok/internal/user/service"
	"kolabdok/middleware"
	"kolabdok/socket"
)

func Setup(db *sql.DB, hub *socket.Hub, tokens *token.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS)

	users := userHandler.NewUserHandler(userService.NewUserService(userRepository.NewUserRepository(db), tokens))
	docs := docHandler.NewDocumentHandler(docService.NewDocumentService(docRepository.NewDocumentRepository(db), hub, tokens))

	r.Post("/api/auth/signup", users.Signup)
	r.Post("/api/auth/login", users.Login)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tokens))

		r.Get("/api/auth/profile", users.Profile)

		r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
			userID := req.Context().Value(middleware.UserIDKey).(string)
			socket.ServeWs(hub, w, req, userID)
		})

		r.Post("/api/documents", docs.CreateDocument)
		r.Get("/api/documents", docs.GetDocuments)
		r.Post("/api/documents/access-shared", docs.AccessShared)
		r.Get("/api/documents/{docID}", docs.GetDocument)
		r.Put("/api/documents/{docID}", docs.UpdateContent)
		r.Put("/api/documents/{docID}/title", docs.UpdateTitle)
		r.Delete("/api/documents/{docID}", docs.DeleteDocument)
		r.Post("/api/documents/{docID}/share", docs.ShareDocument)
		r.Delete("/api/documents/{docID}/collaborators/{userID}", docs.RemoveCollaborator)
		r.Get("/api/documents/{docID}/export/pdf", docs.ExportPDF)
		r.Get("/api/documents/{docID}/export/docx", docs.ExportDOCX)
	})

	return r
}
