package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"permit-agent/internal/app"
	"permit-agent/internal/model"
	"permit-agent/internal/transport/http/response"
)

type DocumentHandler struct {
	uploadService *app.UploadService
}

func NewDocumentHandler(uploadService *app.UploadService) *DocumentHandler {
	return &DocumentHandler{uploadService: uploadService}
}

type documentPayload struct {
	ID           uint      `json:"id"`
	SessionID    string    `json:"sessionId"`
	DocumentType string    `json:"documentType"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	SizeBytes    int64     `json:"sizeBytes"`
	UploadedAt   time.Time `json:"uploadedAt"`
	URL          string    `json:"url"`
}

func toDocumentPayload(doc model.Document) documentPayload {
	return documentPayload{
		ID:           doc.ID,
		SessionID:    doc.SessionID,
		DocumentType: doc.DocumentType,
		OriginalName: doc.OriginalName,
		MimeType:     doc.MimeType,
		SizeBytes:    doc.SizeBytes,
		UploadedAt:   doc.CreatedAt,
		URL:          "/" + doc.RelativePath,
	}
}

// Upload accepts one multipart file plus sessionId and documentType fields.
func (h *DocumentHandler) Upload(c *gin.Context) {
	sessionID := c.PostForm("sessionId")
	documentType := c.PostForm("documentType")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if sessionID == "" {
			response.Message(c, http.StatusBadRequest, app.ErrSessionIDRequired.Error())
			return
		}
		if documentType == "" {
			response.Message(c, http.StatusBadRequest, app.ErrDocumentTypeRequired.Error())
			return
		}
		response.Message(c, http.StatusBadRequest, app.ErrFileRequired.Error())
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Message(c, http.StatusBadRequest, app.ErrFileRequired.Error())
		return
	}
	defer file.Close()

	document, err := h.uploadService.Store(app.StoreDocumentInput{
		SessionID:    sessionID,
		DocumentType: documentType,
		OriginalName: fileHeader.Filename,
		MimeType:     fileHeader.Header.Get("Content-Type"),
		Size:         fileHeader.Size,
		Content:      file,
	})
	if err != nil {
		writeUploadError(c, err)
		return
	}
	response.OK(c, gin.H{"document": toDocumentPayload(*document)})
}

// List returns the session's uploads, newest first.
func (h *DocumentHandler) List(c *gin.Context) {
	documents, err := h.uploadService.ListDocuments(c.Param("sessionId"))
	if err != nil {
		writeUploadError(c, err)
		return
	}
	payloads := make([]documentPayload, 0, len(documents))
	for _, doc := range documents {
		payloads = append(payloads, toDocumentPayload(doc))
	}
	response.OK(c, gin.H{"documents": payloads})
}

func writeUploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrFileTooLarge):
		response.Message(c, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, app.ErrSessionNotFound):
		response.Message(c, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrSessionIDRequired),
		errors.Is(err, app.ErrSessionIDInvalid),
		errors.Is(err, app.ErrDocumentTypeRequired),
		errors.Is(err, app.ErrFileRequired):
		response.Message(c, http.StatusBadRequest, err.Error())
	default:
		response.Message(c, http.StatusInternalServerError, err.Error())
	}
}
