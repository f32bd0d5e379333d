package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/weightlog/weightlog/internal/server/models"
)

// maxUploadSize caps multipart CSV uploads held in memory.
const maxUploadSize = 32 << 20

func decodeEntry(r *http.Request) (models.EntryDTO, error) {
	var dto models.EntryDTO
	if err := decodeJSON(r, &dto); err != nil {
		return dto, err
	}
	if dto.Date.IsZero() {
		return dto, errors.New("date is required")
	}
	return dto, nil
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	dto, err := decodeEntry(r)
	if err != nil {
		writeInvalid(w, err)
		return
	}

	id, err := s.entries.Add(r.Context(), userFrom(r.Context()), dto)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	dto, err := decodeEntry(r)
	if err != nil {
		writeInvalid(w, err)
		return
	}

	if err := s.entries.Update(r.Context(), userFrom(r.Context()), dto); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	date, err := models.ParseDate(mux.Vars(r)["date"])
	if err != nil {
		writeInvalid(w, err)
		return
	}

	if err := s.entries.Delete(r.Context(), userFrom(r.Context()), date); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleDeleteAllEntries(w http.ResponseWriter, r *http.Request) {
	if _, err := s.entries.DeleteAll(r.Context(), userFrom(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	list, err := s.entries.List(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	body, err := s.entries.ExportCSV(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	_, _ = io.WriteString(w, body)
}

func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeInvalid(w, err)
		return
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		writeInvalid(w, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeInvalid(w, err)
		return
	}

	if err := s.entries.ImportCSV(r.Context(), userFrom(r.Context()), data); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	png, err := s.entries.Graph(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}
