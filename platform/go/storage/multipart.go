package storage

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/zenGate-Global/palmyra-gacha/platform/go/problems"
)

const (
	formMemory   = 8 << 20
	formOverhead = 1 << 20
)

// FormUploads parses a multipart body holding up to len(fields) files and returns the
// uploads present under fields. Absent fields are missing from the map. The returned
// cleanup closes the files and removes temporary copies; it is safe to call on error.
func FormUploads(w http.ResponseWriter, r *http.Request, fields ...string) (map[string]*Upload, func(), error) {
	cleanup := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	limit := int64(len(fields))*MaxUploadBytes + formOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, cleanup, problems.Invalid("files", "file exceeds the 10 MiB limit")
		}
		return nil, cleanup, problems.Invalid("body", "malformed multipart body")
	}

	var files []multipart.File
	uploads := make(map[string]*Upload, len(fields))
	for _, field := range fields {
		f, hdr, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			for _, open := range files {
				_ = open.Close()
			}
			return nil, cleanup, problems.Invalid(field, "unreadable file")
		}
		if hdr.Size > MaxUploadBytes {
			_ = f.Close()
			for _, open := range files {
				_ = open.Close()
			}
			return nil, cleanup, problems.Invalid(field, "file exceeds the 10 MiB limit")
		}
		files = append(files, f)
		uploads[field] = &Upload{Filename: hdr.Filename, Body: f}
	}

	return uploads, func() {
		for _, f := range files {
			_ = f.Close()
		}
		cleanup()
	}, nil
}
