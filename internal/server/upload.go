package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/8848connie/drawing-room/internal/photos"
	"github.com/8848connie/drawing-room/internal/storage"
)

// mediaUploadTimeout bounds the call to the object store.
const mediaUploadTimeout = 5 * time.Minute

// uploadResp is the JSON response returned after a successful upload.
type uploadResp struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

// uploadHandler handles POST /api/upload.
//
// Order matters: preflight, method, configuration, body, multipart, media
// upload, record insert. Nothing external is constructed before the
// configuration check passes, and the insert only runs after the media
// store returned a URL. A failed insert leaves the uploaded object behind;
// it is logged and counted, not deleted.
func (s *Server) uploadHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setUploadCORS(w)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, msgBody{Msg: "Method Not Allowed"})
			return
		}

		rid := RequestIDFromContext(r.Context())
		fields := func(extra map[string]any) map[string]any {
			f := map[string]any{"request_id": rid}
			for k, v := range extra {
				f[k] = v
			}
			return f
		}

		cfg, err := s.loadConfig()
		if err == nil {
			err = cfg.MissingForUpload()
		}
		if err != nil {
			s.log.Error("upload_config_invalid", fields(nil), err)
			s.metrics.RecordUploadError(stageConfig)
			writeError(w, http.StatusInternalServerError, "server misconfigured", err)
			return
		}

		raw, err := readBody(w, r, cfg.MaxUploadBytes)
		if err != nil {
			if errors.Is(err, ErrBodyTooLarge) {
				s.metrics.RecordUploadError(stageParse)
				writeJSON(w, http.StatusRequestEntityTooLarge, msgBody{Msg: "file too large"})
				return
			}
			s.log.Warn("upload_body_unreadable", fields(map[string]any{"error": err.Error()}))
			s.metrics.RecordUploadError(stageParse)
			writeError(w, http.StatusInternalServerError, "could not parse upload", err)
			return
		}

		form, err := parseUploadForm(r.Header.Get("Content-Type"), raw)
		if err != nil {
			if errors.Is(err, ErrNoPhoto) || errors.Is(err, ErrNameTooLong) || errors.Is(err, ErrNameInvalid) {
				s.metrics.RecordUploadError(stageInput)
				writeJSON(w, http.StatusBadRequest, msgBody{Msg: err.Error()})
				return
			}
			s.log.Warn("upload_parse_failed", fields(map[string]any{"error": err.Error()}))
			s.metrics.RecordUploadError(stageParse)
			writeError(w, http.StatusInternalServerError, "could not parse upload", err)
			return
		}

		media, err := s.backends.Media(cfg)
		if err != nil {
			s.log.Error("upload_media_init_failed", fields(nil), err)
			s.metrics.RecordUploadError(stageMedia)
			writeError(w, http.StatusInternalServerError, "media upload failed", err)
			return
		}
		store, err := s.backends.Store(cfg)
		if err != nil {
			s.log.Error("upload_store_init_failed", fields(nil), err)
			s.metrics.RecordUploadError(stageStore)
			writeError(w, http.StatusInternalServerError, "database write failed", err)
			return
		}

		start := time.Now()
		key := storage.ObjectKey(cfg.Storage.Folder, form.FileName, form.ContentType, s.now())

		ctx, cancel := context.WithTimeout(r.Context(), mediaUploadTimeout)
		url, err := media.Put(ctx, storage.Object{
			Key:         key,
			ContentType: form.ContentType,
			Data:        form.Data,
		})
		cancel()
		if err != nil {
			s.log.Error("upload_media_failed", fields(map[string]any{"key": key}), err)
			s.metrics.RecordUploadError(stageMedia)
			writeError(w, http.StatusInternalServerError, "media upload failed", err)
			return
		}

		rec, err := store.Insert(r.Context(), photos.NewPhoto{
			PhotoURL:     url,
			UploaderName: form.UploaderName,
			Timestamp:    s.now().UnixMilli(),
		})
		if err != nil {
			// The object is already in the bucket; there is no compensating delete.
			s.log.Error("upload_orphaned_media", fields(map[string]any{"key": key, "url": url}), err)
			s.metrics.RecordUploadError(stageStore)
			s.metrics.RecordOrphanedMedia()
			writeError(w, http.StatusInternalServerError, "database write failed", err)
			return
		}

		s.metrics.RecordUpload(int64(len(form.Data)), time.Since(start))
		s.log.Info("photo_uploaded", fields(map[string]any{
			"id":    rec.ID,
			"key":   key,
			"bytes": len(form.Data),
		}))

		writeJSON(w, http.StatusOK, uploadResp{
			URL:  rec.PhotoURL,
			Name: rec.UploaderName,
			Msg:  "Upload successful",
		})
	})
}
