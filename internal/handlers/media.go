package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bloogle/internal/service"
)

// multipart overhead allowed on top of the image size limit
const formSlack = 1 << 20

func limitBody(c *gin.Context, maxImage int64) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImage+formSlack)
}

// formUpload opens an optional file field. A missing file yields a nil upload.
func formUpload(c *gin.Context, field string) (*service.Upload, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, nil
		}
		return nil, func() {}, err
	}
	if header.Size == 0 {
		return nil, func() {}, nil
	}

	file, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &service.Upload{Name: header.Filename, Data: file}, func() { _ = file.Close() }, nil
}

func (h HandlerSet) Image(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		c.String(http.StatusBadRequest, "Invalid image id")
		return
	}

	image, body, err := h.images.Open(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.String(http.StatusNotFound, "Image not found")
			return
		}
		h.log.Error().Err(err).Int64("image_id", id).Msg("open image failed")
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	defer body.Close()

	c.DataFromReader(http.StatusOK, image.SizeBytes, image.MimeType, body, map[string]string{
		"Cache-Control":          "public, max-age=86400, immutable",
		"X-Content-Type-Options": "nosniff",
	})
}

func (h HandlerSet) UpdateProfile(c *gin.Context) {
	limitBody(c, h.cfg.Uploads.MaxBytes)

	upload, closeUpload, err := formUpload(c, "profile")
	if err != nil || upload == nil {
		h.renderError(c, http.StatusBadRequest, "Invalid request", "No file uploaded.")
		return
	}
	defer closeUpload()

	if _, err := h.blogs.UpdateProfileImage(c.Request.Context(), h.identity(c).UserID, *upload); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}
