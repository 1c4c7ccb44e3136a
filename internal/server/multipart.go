package server

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Form field names the browser client sends.
const (
	fieldPhoto        = "photo"
	fieldUploaderName = "uploader-name"
)

// DefaultUploaderName is used when the form has no usable name.
const DefaultUploaderName = "Anonymous friend"

// MaxUploaderNameRunes matches the uploader_name column width.
const MaxUploaderNameRunes = 255

// maxNameBytes is the most bytes a name of MaxUploaderNameRunes can take.
const maxNameBytes = MaxUploaderNameRunes * utf8.UTFMax

var (
	// ErrNoPhoto means the form parsed but had no photo file part.
	ErrNoPhoto = errors.New("no photo file in upload")
	// ErrBodyTooLarge means the body exceeded the configured limit.
	ErrBodyTooLarge = errors.New("upload body too large")
	// ErrNameTooLong means the uploader name does not fit the column.
	ErrNameTooLong = fmt.Errorf("uploader name longer than %d characters", MaxUploaderNameRunes)
	// ErrNameInvalid means the uploader name is not storable text.
	ErrNameInvalid = errors.New("uploader name is not valid UTF-8 text")
)

// uploadForm is the decoded upload request.
type uploadForm struct {
	UploaderName string
	FileName     string
	ContentType  string
	Data         []byte
}

// readBody reads the raw request body, enforcing limit when positive, and
// undoes a base64 transfer encoding applied at the hosting boundary.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	body := r.Body
	if limit > 0 {
		body = http.MaxBytesReader(w, r.Body, limit)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, ErrBodyTooLarge
		}
		return nil, fmt.Errorf("read body: %w", err)
	}

	if strings.EqualFold(strings.TrimSpace(r.Header.Get("Content-Transfer-Encoding")), "base64") {
		decoded, err := decodeBase64(raw)
		if err != nil {
			return nil, fmt.Errorf("decode base64 body: %w", err)
		}
		raw = decoded
	}
	return raw, nil
}

func decodeBase64(raw []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	out := make([]byte, base64.StdEncoding.DecodedLen(len(trimmed)))
	n, err := base64.StdEncoding.Decode(out, trimmed)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// readUploaderName reads the name field, refusing anything the photos
// table could not store.
func readUploaderName(part io.Reader) (string, error) {
	v, err := io.ReadAll(io.LimitReader(part, maxNameBytes+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", fieldUploaderName, err)
	}
	if len(v) > maxNameBytes {
		return "", ErrNameTooLong
	}
	if !utf8.Valid(v) || bytes.IndexByte(v, 0) >= 0 {
		return "", ErrNameInvalid
	}
	if utf8.RuneCount(v) > MaxUploaderNameRunes {
		return "", ErrNameTooLong
	}
	return string(v), nil
}

// parseUploadForm decodes a multipart/form-data body. The first part named
// "photo" that carries a filename is the payload; every later file part is
// skipped. A name the photos table cannot hold yields ErrNameTooLong or
// ErrNameInvalid; parse problems are returned as other errors.
func parseUploadForm(contentType string, raw []byte) (uploadForm, error) {
	form := uploadForm{UploaderName: DefaultUploaderName}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return form, fmt.Errorf("content type: %w", err)
	}
	if mediaType != "multipart/form-data" {
		return form, fmt.Errorf("content type %q is not multipart/form-data", mediaType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return form, errors.New("multipart boundary missing")
	}

	mr := multipart.NewReader(bytes.NewReader(raw), boundary)
	found := false
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return form, fmt.Errorf("multipart: %w", err)
		}

		switch {
		case part.FileName() != "":
			if found || part.FormName() != fieldPhoto {
				// NextPart drains the rest of this part.
				continue
			}
			data, err := io.ReadAll(part)
			if err != nil {
				return form, fmt.Errorf("read photo part: %w", err)
			}
			form.FileName = part.FileName()
			form.ContentType = part.Header.Get("Content-Type")
			form.Data = data
			found = true

		case part.FormName() == fieldUploaderName:
			name, err := readUploaderName(part)
			if err != nil {
				return form, err
			}
			if strings.TrimSpace(name) != "" {
				form.UploaderName = name
			}
		}
	}

	if !found {
		return form, ErrNoPhoto
	}

	if form.ContentType == "" || form.ContentType == "application/octet-stream" {
		form.ContentType = http.DetectContentType(form.Data)
	}
	return form, nil
}
