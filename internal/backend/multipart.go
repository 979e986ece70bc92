package backend

import (
	"bytes"
	"mime/multipart"
)

// formField is a text field, or a file part when file is set.
type formField struct {
	name  string
	value string
	file  *File
}

// File is an uploaded file passed through to the backend as a multipart part.
type File struct {
	Name    string
	Content []byte
}

func encodeForm(fields ...formField) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		if f.file == nil {
			if err := w.WriteField(f.name, f.value); err != nil {
				return nil, "", err
			}
			continue
		}
		part, err := w.CreateFormFile(f.name, f.file.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.file.Content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
