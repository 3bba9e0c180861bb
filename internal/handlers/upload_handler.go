package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/01moynul/storefront/internal/apperr"
	"github.com/01moynul/storefront/internal/upload"
	"github.com/gin-gonic/gin"
)

// formOverhead is the room left in a request body for the text fields and
// multipart framing next to an image of the maximum size.
const formOverhead = 1 << 20

// formImage reads the optional "image" part of a multipart request.
// It returns (nil, noop, nil) when no file was sent; the caller must call closeFn.
func (h *Handlers) formImage(c *gin.Context) (file *upload.File, closeFn func(), err error) {
	noop := func() {}
	limit := h.Config.MaxUploadBytes
	tooLarge := apperr.Validation("image", fmt.Sprintf("Image must be at most %d MB", limit>>20))

	// 1. Cap the body so an oversized upload is never spooled to disk
	if limit > 0 {
		if c.Request.ContentLength > limit+formOverhead {
			return nil, noop, tooLarge
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+formOverhead)
	}

	// 2. Get the file from the request
	header, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, nil
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return nil, noop, tooLarge
	}
	if err != nil {
		return nil, noop, apperr.Validation("image", "Could not read the uploaded image")
	}

	// 3. Enforce the size limit before touching storage
	if limit > 0 && header.Size > limit {
		return nil, noop, tooLarge
	}

	// 4. Hand the stream to the service
	f, err := header.Open()
	if err != nil {
		return nil, noop, fmt.Errorf("open upload: %w", err)
	}
	return &upload.File{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  io.LimitReader(f, header.Size),
	}, func() { _ = f.Close() }, nil
}
