package handler

import (
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"invoicegw/internal/invoice"
	"invoicegw/internal/model"
	"invoicegw/internal/workspace"
)

// requireUpload reads a mandatory multipart file part into memory.
func requireUpload(c *fiber.Ctx, name string) (*model.Upload, error) {
	fh, err := c.FormFile(name)
	if err != nil || fh == nil {
		return nil, invoice.Invalidf("Missing file part: %s", name)
	}
	return readUpload(fh)
}

func readUpload(fh *multipart.FileHeader) (*model.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, invoice.Invalidf("cannot open uploaded file %s", fh.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &model.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// readAttachments collects the optional "attachments" parts, preserving
// upload order; they are embedded in exactly that order.
func readAttachments(c *fiber.Ctx) ([]invoice.Attachment, error) {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil, nil
	}

	files := form.File["attachments"]
	attachments := make([]invoice.Attachment, 0, len(files))
	for _, fh := range files {
		up, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		name := workspace.SafeFilename(up.Filename)
		if name == "" {
			name = "attachment"
		}
		attachments = append(attachments, invoice.Attachment{
			Filename: name,
			MimeType: up.ContentType,
			Data:     up.Data,
		})
	}
	return attachments, nil
}

// parseBool accepts the loose boolean encodings callers send in form
// fields. Unknown values fall back to the default instead of failing.
func parseBool(value string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y":
		return true
	case "0", "false", "no", "n":
		return false
	default:
		return def
	}
}

// parseInt parses an optional integer form field. Blank input yields the
// default; malformed input is an invalid-argument error naming the value.
func parseInt(value string, def int) (int, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, invoice.Invalidf("Invalid integer: %s", value)
	}
	return i, nil
}

func defaultIfBlank(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
