package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"

	"cloudvault/internal/auth"
	"cloudvault/internal/domain"
	"cloudvault/internal/service"
	"cloudvault/internal/validation"
)

const defaultFilesListLimit = 100

type FileHandler struct {
	fileService *service.FileService
}

func NewFileHandler(fileService *service.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// fileInfoResponse — элемент списка файлов. Хеш наружу не отдается.
type fileInfoResponse struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

type renameRequest struct {
	Filename string `json:"filename"`
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())

	limit := defaultFilesListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	infos, err := h.fileService.List(r.Context(), principal.Name, limit)
	if err != nil {
		log.Printf("list failed for %q: %v", principal.Name, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := make([]fileInfoResponse, 0, len(infos))
	for _, info := range infos {
		resp = append(resp, fileInfoResponse{
			Filename: info.Filename,
			Size:     info.SizeBytes,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// Download отдает содержимое файла multipart-телом с частями
// file (бинарная) и hash (текстовая).
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())

	filename := r.URL.Query().Get("filename")
	if err := validation.ValidateFileName(filename); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	content, err := h.fileService.Open(r.Context(), principal.Name, filename)
	if err != nil {
		if errors.Is(err, domain.ErrFileNotFound) {
			writeError(w, http.StatusNotFound, "file not found")
			return
		}
		log.Printf("download failed for %q/%q: %v", principal.Name, filename, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer content.Content.Close()

	mw := multipart.NewWriter(w)
	w.Header().Set("Content-Type", mw.FormDataContentType())
	w.WriteHeader(http.StatusOK)

	filePart, err := mw.CreateFormFile("file", filename)
	if err != nil {
		log.Printf("failed to create file part: %v", err)
		return
	}
	if _, err := io.Copy(filePart, content.Content); err != nil {
		log.Printf("failed to stream file %q: %v", filename, err)
		return
	}
	if err := mw.WriteField("hash", content.Hash); err != nil {
		log.Printf("failed to write hash part: %v", err)
		return
	}
	if err := mw.Close(); err != nil {
		log.Printf("failed to finish multipart body: %v", err)
	}
}

// Upload принимает multipart-часть file и сохраняет новую версию.
// Хеш в параметре необязателен: пустой заменяется вычисленной
// контрольной суммой.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())

	filename := r.URL.Query().Get("filename")
	if err := validation.ValidateFileName(filename); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hash := r.URL.Query().Get("hash")

	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart body is required")
		return
	}

	filePart, err := nextFilePart(reader)
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart part 'file' is required")
		return
	}
	defer filePart.Close()

	if _, err := h.fileService.Save(r.Context(), principal.Name, filename, hash, filePart); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeError(w, http.StatusBadRequest, "user not found")
			return
		}
		log.Printf("upload failed for %q/%q: %v", principal.Name, filename, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *FileHandler) Rename(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())

	oldName := r.URL.Query().Get("filename")
	if err := validation.ValidateFileName(oldName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.ValidateFileName(req.Filename); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.fileService.Rename(r.Context(), principal.Name, oldName, req.Filename); err != nil {
		switch {
		case errors.Is(err, domain.ErrFileNotFound):
			writeError(w, http.StatusNotFound, "file not found")
		case errors.Is(err, domain.ErrFileAlreadyExists):
			writeError(w, http.StatusConflict, "file already exists")
		default:
			log.Printf("rename failed for %q/%q: %v", principal.Name, oldName, err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())

	filename := r.URL.Query().Get("filename")
	if err := validation.ValidateFileName(filename); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.fileService.Delete(r.Context(), principal.Name, filename); err != nil {
		if errors.Is(err, domain.ErrFileNotFound) {
			writeError(w, http.StatusNotFound, "file not found")
			return
		}
		log.Printf("delete failed for %q/%q: %v", principal.Name, filename, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusOK)
}

func nextFilePart(reader *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := reader.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" {
			return part, nil
		}
		part.Close()
	}
}
