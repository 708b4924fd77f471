// Package netx holds HTTP helpers shared by docseal clients.
package netx

import (
	"bytes"
	"fmt"
	"mime/multipart"
)

// FilePart is the single file carried by a multipart form.
type FilePart struct {
	Field    string
	FileName string
	Data     []byte
}

// MultipartForm encodes fields and file as multipart/form-data. The returned
// content type carries the boundary.
func MultipartForm(fields map[string]string, file FilePart) (string, *bytes.Buffer, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return "", nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}

	part, err := w.CreateFormFile(file.Field, file.FileName)
	if err != nil {
		return "", nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return "", nil, fmt.Errorf("write file part: %w", err)
	}

	if err := w.Close(); err != nil {
		return "", nil, fmt.Errorf("close multipart: %w", err)
	}
	return w.FormDataContentType(), body, nil
}
