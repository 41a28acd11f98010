package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ragdex/ragdex/internal/model"
	"github.com/ragdex/ragdex/internal/pkg/response"
	"github.com/ragdex/ragdex/internal/service"
)

type UploadHandler struct {
	indexer *service.IndexService
}

func NewUploadHandler(indexer *service.IndexService) *UploadHandler {
	return &UploadHandler{indexer: indexer}
}

type uploadResponse struct {
	Message         string               `json:"message"`
	FilesProcessed  int                  `json:"files_processed"`
	NewFilesIndexed int                  `json:"new_files_indexed"`
	ChunksIndexed   int                  `json:"chunks_indexed"`
	Files           []service.FileResult `json:"files"`
}

func (h *UploadHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "multipart form is required")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		response.Error(c, http.StatusBadRequest, "at least one file is required")
		return
	}

	docs := make([]model.Document, 0, len(headers))
	for _, header := range headers {
		opened, err := header.Open()
		if err != nil {
			response.Error(c, http.StatusBadRequest, "failed to open uploaded file: "+header.Filename)
			return
		}
		data, err := io.ReadAll(opened)
		opened.Close()
		if err != nil {
			response.Error(c, http.StatusBadRequest, "failed to read uploaded file: "+header.Filename)
			return
		}
		docs = append(docs, model.Document{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	summary, err := h.indexer.Index(c.Request.Context(), docs)
	if err != nil {
		if errors.Is(err, service.ErrNoNewFiles) {
			response.Error(c, http.StatusBadRequest, "No new files to index.")
			return
		}
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, uploadResponse{
		Message:         "Upload complete",
		FilesProcessed:  summary.FilesProcessed,
		NewFilesIndexed: summary.NewFilesIndexed,
		ChunksIndexed:   summary.ChunksIndexed,
		Files:           summary.Files,
	})
}
