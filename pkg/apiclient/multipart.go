package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
)

// Image is a file part of a multipart upload.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

func (img *Image) empty() bool {
	return img == nil || len(img.Data) == 0
}

type formPart struct {
	name  string
	json  any
	image *Image
}

// multipartBody encodes JSON parts as application/json parts (the backend
// binds them with @RequestPart) and images as file parts.
func multipartBody(parts ...formPart) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range parts {
		switch {
		case p.json != nil:
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="blob"`, p.name))
			h.Set("Content-Type", "application/json")
			pw, err := w.CreatePart(h)
			if err != nil {
				return nil, "", err
			}
			if err := json.NewEncoder(pw).Encode(p.json); err != nil {
				return nil, "", fmt.Errorf("encode %s part: %w", p.name, err)
			}
		case !p.image.empty():
			ct := p.image.ContentType
			if ct == "" {
				ct = "application/octet-stream"
			}
			name := p.image.Name
			if name == "" {
				name = p.name
			}
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.name, name))
			h.Set("Content-Type", ct)
			pw, err := w.CreatePart(h)
			if err != nil {
				return nil, "", err
			}
			if _, err := pw.Write(p.image.Data); err != nil {
				return nil, "", err
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
