package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/a3tai/pdf-bookmaker/internal/api"
	"github.com/a3tai/pdf-bookmaker/internal/book"
	"github.com/a3tai/pdf-bookmaker/internal/library"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (s *Server) apiLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.LoginResponse{Error: "invalid request body"})
		return
	}

	user, token, err := s.checkLogin(r, req.Username, req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, api.LoginResponse{Error: "Invalid username or password."})
		return
	}

	s.logger.Info("api login", zap.Int64("user_id", user.ID))
	writeJSON(w, http.StatusOK, api.LoginResponse{Token: token})
}

func (s *Server) apiFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.library.List(r.Context(), currentUser(r).ID)
	if err != nil {
		s.logger.Error("failed to list files", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, api.FilesResponse{Files: []api.FileEntry{}, Error: "failed to list files"})
		return
	}

	resp := api.FilesResponse{Files: make([]api.FileEntry, 0, len(files))}
	for _, f := range files {
		resp.Files = append(resp.Files, api.FileEntry{
			Filename:  f.Filename,
			CreatedAt: f.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req api.BookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user := currentUser(r)
	res, err := s.books.Generate(r.Context(), book.Author{ID: user.ID, Username: user.Username}, req)
	switch {
	case errors.Is(err, book.ErrNoTopics):
		writeError(w, http.StatusBadRequest, "No topics provided")
	case errors.Is(err, book.ErrInvalidOption):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.logger.Error("book generation failed",
			zap.String("request_id", requestID(r.Context())),
			zap.Int64("user_id", user.ID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to generate PDF")
	default:
		writeJSON(w, http.StatusOK, res.Response())
	}
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]

	path, err := s.library.Open(r.Context(), currentUser(r).ID, filename)
	if err != nil {
		s.fileError(w, r, err)
		return
	}
	if err := writePDF(w, r, path, filename); err != nil {
		s.fileError(w, r, err)
	}
}

func (s *Server) fileError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, "failed to read file"
	if errors.Is(err, library.ErrNotFound) || errors.Is(err, library.ErrInvalidPath) {
		status, msg = http.StatusNotFound, "file not found"
	} else {
		s.logger.Error("failed to serve file", zap.Error(err))
	}

	if wantsJSON(r) {
		writeError(w, status, msg)
		return
	}
	http.Error(w, msg, status)
}

func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]

	err := s.library.Delete(r.Context(), currentUser(r).ID, filename)
	if wantsJSON(r) {
		switch {
		case errors.Is(err, library.ErrNotFound) || errors.Is(err, library.ErrInvalidPath):
			writeError(w, http.StatusNotFound, "file not found")
		case err != nil:
			s.logger.Error("failed to delete file", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to delete file")
		default:
			writeJSON(w, http.StatusOK, api.Response{Message: "File deleted successfully.", File: filename})
		}
		return
	}

	switch {
	case errors.Is(err, library.ErrNotFound) || errors.Is(err, library.ErrInvalidPath):
		s.redirect(w, r, "/dashboard", flashError, "File not found or you do not have permission to delete it.")
	case err != nil:
		s.logger.Error("failed to delete file", zap.Error(err))
		s.redirect(w, r, "/dashboard", flashError, "Error deleting file: "+err.Error())
	default:
		s.redirect(w, r, "/dashboard", flashSuccess, "File deleted successfully.")
	}
}
