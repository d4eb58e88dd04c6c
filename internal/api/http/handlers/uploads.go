package handlers

import (
	"fmt"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/bongitrade/policy-service/internal/storage"
	apperrors "github.com/bongitrade/policy-service/pkg/util/errorutil"
)

const documentsField = "documents"

// readDocuments opens every file sent under the documents field. The
// returned close func must be called once the uploads have been consumed.
func readDocuments(c *fiber.Ctx, maxFileBytes int64) ([]storage.Upload, func(), error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, func() {}, apperrors.NewValidationError("multipart form required", map[string]any{"field": documentsField})
	}

	var headers []*multipart.FileHeader
	headers = append(headers, form.File[documentsField]...)
	headers = append(headers, form.File[documentsField+"[]"]...)
	for _, fh := range headers {
		if maxFileBytes > 0 && fh.Size > maxFileBytes {
			return nil, func() {}, apperrors.NewValidationError(
				fmt.Sprintf("document %q exceeds %d bytes", fh.Filename, maxFileBytes),
				map[string]any{"field": documentsField},
			)
		}
	}

	opened := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	uploads := make([]storage.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, apperrors.NewValidationError("unreadable document", map[string]any{"file": fh.Filename})
		}
		opened = append(opened, f)
		uploads = append(uploads, storage.Upload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return uploads, closeAll, nil
}
