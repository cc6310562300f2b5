package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gin-gonic/gin"

	"pomegranate/internal/core/apperror"
	"pomegranate/internal/infrastructure/http/v1/dto"
	"pomegranate/internal/infrastructure/imagehost"
)

// MaxUploadFiles bounds one multi-file upload.
const MaxUploadFiles = 9

// Uploader stores image bytes and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename string) (string, error)
	UploadDataURL(ctx context.Context, dataURL string) (string, error)
}

// UploadHandler accepts images and forwards them to the image host.
type UploadHandler struct {
	*BaseHandler
	uploader Uploader
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(base *BaseHandler, uploader Uploader) *UploadHandler {
	return &UploadHandler{BaseHandler: base, uploader: uploader}
}

// Single handles POST /upload/single with form field "file".
func (h *UploadHandler) Single(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		h.Error(c, apperror.NewValidation("no file uploaded").WithDetail("field", "file"))
		return
	}

	out, err := h.store(c.Request.Context(), fh)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, out)
}

// Multiple handles POST /upload/multiple with up to nine "files" parts.
func (h *UploadHandler) Multiple(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid multipart form").WithDetail("error", err.Error()))
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		h.Error(c, apperror.NewValidation("no file uploaded").WithDetail("field", "files"))
		return
	}
	if len(files) > MaxUploadFiles {
		h.Error(c, apperror.NewValidation(fmt.Sprintf("at most %d files per upload", MaxUploadFiles)).
			WithDetail("count", len(files)))
		return
	}

	// Validate every part before uploading any of them.
	for _, fh := range files {
		if fh.Size > imagehost.MaxImageBytes {
			h.Error(c, tooLarge(fh.Filename))
			return
		}
	}

	out := make([]*dto.UploadedFile, 0, len(files))
	for _, fh := range files {
		f, err := h.store(c.Request.Context(), fh)
		if err != nil {
			h.Error(c, err)
			return
		}
		out = append(out, f)
	}
	h.OK(c, out)
}

// Base64 handles POST /upload/base64 with {images: ["data:image/...;base64,..."]}.
func (h *UploadHandler) Base64(c *gin.Context) {
	var req dto.Base64UploadRequest
	if !h.BindJSON(c, &req) {
		return
	}

	urls := make([]string, 0, len(req.Images))
	for i, img := range req.Images {
		url, err := h.uploader.UploadDataURL(c.Request.Context(), img)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				err = appErr.WithDetail("index", i)
			}
			h.Error(c, err)
			return
		}
		urls = append(urls, url)
	}
	h.OK(c, dto.Base64UploadResponse{URLs: urls, Count: len(urls)})
}

func (h *UploadHandler) store(ctx context.Context, fh *multipart.FileHeader) (*dto.UploadedFile, error) {
	if fh.Size > imagehost.MaxImageBytes {
		return nil, tooLarge(fh.Filename)
	}
	data, err := readPart(fh)
	if err != nil {
		return nil, err
	}
	m, err := imagehost.Detect(data)
	if err != nil {
		return nil, apperror.NewValidation(err.Error()).WithDetail("file", fh.Filename)
	}

	url, err := h.uploader.Upload(ctx, data, fh.Filename)
	if err != nil {
		return nil, err
	}
	return &dto.UploadedFile{
		OriginalName: fh.Filename,
		Size:         int64(len(data)),
		MimeType:     m.String(),
		URL:          url,
	}, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, apperror.NewValidation("cannot read uploaded file").WithCause(err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, imagehost.MaxImageBytes+1))
	if err != nil {
		return nil, apperror.NewValidation("cannot read uploaded file").WithCause(err)
	}
	if len(data) > imagehost.MaxImageBytes {
		return nil, tooLarge(fh.Filename)
	}
	return data, nil
}

func tooLarge(name string) *apperror.AppError {
	return apperror.NewValidation(imagehost.ErrTooLarge.Error()).
		WithDetail("file", name).
		WithDetail("max_bytes", imagehost.MaxImageBytes)
}
