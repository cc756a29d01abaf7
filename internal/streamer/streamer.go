package streamer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"clipstream/internal/catalog"
	"clipstream/internal/logging"
)

// Streamer serves stored media files over HTTP with byte-range support.
type Streamer struct {
	store  *catalog.Store
	logger *slog.Logger
}

// New constructs a Streamer.
func New(store *catalog.Store, logger *slog.Logger) *Streamer {
	return &Streamer{
		store:  store,
		logger: logging.NewComponentLogger(logger, "streamer"),
	}
}

// Serve resolves an item within the requester's tenant and streams its
// backing file, honoring a single-range Range header. A missing backing
// file is an expected failure mode on ephemeral storage and yields a 404
// distinct from an unknown item.
func (s *Streamer) Serve(w http.ResponseWriter, r *http.Request, itemID, tenantID string) {
	item, err := s.store.GetByID(r.Context(), itemID, tenantID)
	if errors.Is(err, catalog.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "catalog lookup failed")
		return
	}

	info, err := os.Stat(item.StoredPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.writeError(w, http.StatusNotFound,
				"video file not found; it may have been removed when ephemeral storage was wiped")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "stat video file failed")
		return
	}
	size := info.Size()

	file, err := os.Open(item.StoredPath)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "open video file failed")
		return
	}
	defer file.Close()

	logger := s.logger.With(logging.String(logging.FieldItemID, item.ID))

	start, end, ok := parseRange(r.Header.Get("Range"), size)
	if !ok {
		// No range, or a range we could not honor: serve the whole file.
		w.Header().Set("Content-Type", item.ContentType())
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		if _, err := io.Copy(w, file); err != nil {
			// Headers are gone; the connection just drops.
			logger.Debug("full stream aborted", logging.Error(err))
		}
		return
	}

	length := end - start + 1
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", item.ContentType())
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, io.NewSectionReader(file, start, length)); err != nil {
		logger.Debug("range stream aborted", logging.Error(err))
	}
}

// parseRange interprets a single-range header of the form
// "bytes=start-end" with end optional. Anything it cannot honor, including
// malformed syntax and out-of-bounds offsets, reports ok=false so the
// caller degrades to a full-file response.
func parseRange(header string, size int64) (start, end int64, ok bool) {
	header = strings.TrimSpace(header)
	if header == "" || size <= 0 {
		return 0, 0, false
	}
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found {
		return 0, 0, false
	}
	if strings.Contains(spec, ",") {
		// Multi-range requests are not supported.
		return 0, 0, false
	}
	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, false
	}

	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil || start < 0 || start >= size {
		return 0, 0, false
	}

	end = size - 1
	if trimmed := strings.TrimSpace(endStr); trimmed != "" {
		end, err = strconv.ParseInt(trimmed, 10, 64)
		if err != nil || end < start {
			return 0, 0, false
		}
		if end > size-1 {
			end = size - 1
		}
	}
	return start, end, true
}

func (s *Streamer) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
