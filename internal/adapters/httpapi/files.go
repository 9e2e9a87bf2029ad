package httpapi

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"troubledesk/internal/errs"
	"troubledesk/internal/usecase/incident"
)

func (h *Handler) handleListFiles(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, r, "invalid incident id")
		return
	}
	level, err := queryInt(r.URL.Query().Get("level"))
	if err != nil {
		badRequest(w, r, "level: "+err.Error())
		return
	}

	files, err := h.incidents.ListFiles(r.Context(), id, int(level))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]fileResponse, 0, len(files))
	for _, file := range files {
		out = append(out, toFileResponse(file))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

// handleAddFile takes a multipart form with "file" and "info_level" fields.
func (h *Handler) handleAddFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, r, "invalid incident id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.incidents.MaxFileBytes()+multipartOverrun)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, r, http.StatusRequestEntityTooLarge, string(errs.CodeInvalidInput), "file exceeds the upload limit")
			return
		}
		badRequest(w, r, "invalid multipart form: "+err.Error())
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	level, err := strconv.Atoi(r.FormValue("info_level"))
	if err != nil {
		badRequest(w, r, "info_level must be 1 or 2")
		return
	}
	part, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, r, "file field is required")
		return
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		writeError(w, r, errs.Wrap(err, "read uploaded file"))
		return
	}

	file, err := h.incidents.AddFile(r.Context(), actorFrom(r.Context()), id, incident.FileInput{
		InfoLevel:   level,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFileResponse(file))
}

// handleGetFile streams the stored content back with its recorded type.
func (h *Handler) handleGetFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := pathID(r, "fileID")
	if !ok {
		badRequest(w, r, "invalid file id")
		return
	}

	file, err := h.incidents.GetFile(r.Context(), fileID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	contentType, data, err := incident.DecodeDataURI(file.DataURI)
	if err != nil {
		writeError(w, r, errs.Wrapf(err, "decode file %d", fileID))
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.FileName}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := pathID(r, "fileID")
	if !ok {
		badRequest(w, r, "invalid file id")
		return
	}

	if err := h.incidents.DeleteFile(r.Context(), actorFrom(r.Context()), fileID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
