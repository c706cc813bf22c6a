package media

import (
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"

	"devlink/internal/dbmongo"
)

type HTTPServer struct {
	storage *dbmongo.AttachmentStorage
}

func NewHTTPServer(mongoClient *dbmongo.MongoClient) *HTTPServer {
	return &HTTPServer{
		storage: dbmongo.NewAttachmentStorage(mongoClient),
	}
}

func (s *HTTPServer) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/attachments/{storageKey}", s.serveAttachment).Methods("GET")
	router.HandleFunc("/health", s.health).Methods("GET")
	return router
}

func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router().ServeHTTP(w, r)
}

func (s *HTTPServer) serveAttachment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	storageKey := vars["storageKey"]

	stream, stored, err := s.storage.Download(r.Context(), storageKey)
	if err != nil {
		http.Error(w, "attachment not found", http.StatusNotFound)
		return
	}
	defer stream.Close()

	contentType := stored.MimeType
	if contentType == "" {
		contentType = contentTypeFromName(stored.Filename)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", stored.Size))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", stored.Filename))

	if _, err := io.Copy(w, stream); err != nil {
		log.Printf("media: error streaming %s: %v", storageKey, err)
	}
}

func contentTypeFromName(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (s *HTTPServer) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
