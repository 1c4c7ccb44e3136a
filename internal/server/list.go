package server

import (
	"net/http"
	"time"
)

// photoView is the listing projection of a PhotoRecord.
type photoView struct {
	URL       string `json:"url"`
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"`
}

// listHandler handles GET /api/get-photos: every record, newest first.
func (s *Server) listHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, msgBody{Msg: "Method Not Allowed"})
			return
		}

		rid := RequestIDFromContext(r.Context())
		start := time.Now()

		cfg, err := s.loadConfig()
		if err == nil {
			err = cfg.MissingForListing()
		}
		if err != nil {
			s.log.Error("list_config_invalid", map[string]any{"request_id": rid}, err)
			s.metrics.RecordListError()
			writeError(w, http.StatusInternalServerError, "server misconfigured", err)
			return
		}

		store, err := s.backends.Store(cfg)
		if err != nil {
			s.log.Error("list_store_init_failed", map[string]any{"request_id": rid}, err)
			s.metrics.RecordListError()
			writeError(w, http.StatusInternalServerError, "could not load photo history", err)
			return
		}

		records, err := store.List(r.Context())
		if err != nil {
			s.log.Error("list_failed", map[string]any{"request_id": rid}, err)
			s.metrics.RecordListError()
			writeError(w, http.StatusInternalServerError, "could not load photo history", err)
			return
		}

		out := make([]photoView, 0, len(records))
		for _, rec := range records {
			out = append(out, photoView{
				URL:       rec.PhotoURL,
				Name:      rec.UploaderName,
				Timestamp: rec.Timestamp,
			})
		}

		s.metrics.RecordList(time.Since(start))
		writeJSON(w, http.StatusOK, out)
	})
}
