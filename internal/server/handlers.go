package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"clipstream/internal/bus"
	"clipstream/internal/catalog"
	"clipstream/internal/fileutil"
	"clipstream/internal/logging"
	"clipstream/internal/pipeline"
)

// maxUploadMemory bounds the multipart form parse buffer; file parts above
// it spill to disk before being streamed into the upload directory.
const maxUploadMemory = 32 << 20

// itemView is the JSON shape of a catalog item returned by the API.
type itemView struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Description      string  `json:"description,omitempty"`
	OriginalFilename string  `json:"originalFilename"`
	MimeType         string  `json:"mimeType"`
	Size             int64   `json:"size"`
	Duration         float64 `json:"duration"`
	Status           string  `json:"status"`
	Sensitivity      string  `json:"sensitivity"`
	Progress         int     `json:"progress"`
	Error            string  `json:"error,omitempty"`
	CreatedAt        string  `json:"createdAt"`
	UpdatedAt        string  `json:"updatedAt"`
}

func toView(item *catalog.Item) itemView {
	return itemView{
		ID:               item.ID,
		Title:            item.Title,
		Description:      item.Description,
		OriginalFilename: item.OriginalFilename,
		MimeType:         item.ContentType(),
		Size:             item.Size,
		Duration:         item.Duration,
		Status:           string(item.Status),
		Sensitivity:      string(item.Sensitivity),
		Progress:         item.Progress,
		Error:            item.ErrorMessage,
		CreatedAt:        item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleList(w, r)
	case http.MethodPost:
		s.handleUpload(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleVideoItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/videos/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		s.writeError(w, http.StatusNotFound, "video not found")
		return
	}

	switch {
	case action == "stream" && (r.Method == http.MethodGet || r.Method == http.MethodHead):
		s.streamer.Serve(w, r, id, tenantFromRequest(r))
	case action == "" && r.Method == http.MethodGet:
		s.handleGet(w, r, id)
	case action == "" && r.Method == http.MethodDelete:
		s.handleDelete(w, r, id)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFromRequest(r)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	storedPath, size, err := fileutil.SaveUpload(s.cfg.Paths.UploadDir, header.Filename, file)
	if err != nil {
		s.logger.Error("failed to store upload", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = header.Filename
	}

	item := &catalog.Item{
		TenantID:         tenant,
		UploaderID:       strings.TrimSpace(r.FormValue("uploader")),
		Title:            title,
		Description:      strings.TrimSpace(r.FormValue("description")),
		OriginalFilename: header.Filename,
		StoredPath:       storedPath,
		MimeType:         header.Header.Get("Content-Type"),
		Size:             size,
	}
	if err := s.store.Create(r.Context(), item); err != nil {
		_ = os.Remove(storedPath)
		s.logger.Error("failed to create catalog record", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to create record")
		return
	}

	queued := bus.Queued(item.ID)
	s.hub.Publish(bus.ItemTopic(item.ID), queued)
	s.hub.Publish(bus.TenantTopic(tenant), queued)

	if _, err := s.processor.Schedule(item.ID); err != nil && !errors.Is(err, pipeline.ErrRunInFlight) {
		s.logger.Error("failed to schedule processing run",
			logging.Error(err),
			logging.String(logging.FieldItemID, item.ID),
		)
	}

	s.logger.Info("upload accepted",
		logging.String(logging.FieldItemID, item.ID),
		logging.String(logging.FieldTenant, tenant),
		logging.Int64("size", size),
	)
	s.writeJSON(w, http.StatusCreated, toView(item))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var filter catalog.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, ok := catalog.ParseStatus(raw)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(raw)+" (expected one of "+knownStatusList()+")")
			return
		}
		filter = parsed
	}

	items, err := s.store.List(r.Context(), tenantFromRequest(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "catalog list failed")
		return
	}
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		if filter != "" && item.Status != filter {
			continue
		}
		views = append(views, toView(item))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func knownStatusList() string {
	statuses := catalog.AllStatuses()
	names := make([]string, len(statuses))
	for i, status := range statuses {
		names[i] = string(status)
	}
	return strings.Join(names, ", ")
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	item, err := s.store.GetByID(r.Context(), id, tenantFromRequest(r))
	if errors.Is(err, catalog.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "catalog lookup failed")
		return
	}
	s.writeJSON(w, http.StatusOK, toView(item))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	tenant := tenantFromRequest(r)
	item, err := s.store.GetByID(r.Context(), id, tenant)
	if errors.Is(err, catalog.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "catalog lookup failed")
		return
	}

	if err := os.Remove(item.StoredPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("failed to remove stored file",
			logging.Error(err),
			logging.String(logging.FieldItemID, id),
		)
	}
	if _, err := s.store.Remove(r.Context(), id, tenant); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to delete record")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "video removed"})
}

// statusView summarizes daemon state for the CLI and monitoring.
type statusView struct {
	Running     bool                  `json:"running"`
	UptimeSecs  int64                 `json:"uptimeSeconds"`
	ActiveRuns  int                   `json:"activeRuns"`
	DroppedEvts int64                 `json:"droppedEvents"`
	Catalog     catalog.HealthSummary `json:"catalog"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	health, err := s.store.Health(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "catalog health failed")
		return
	}
	s.writeJSON(w, http.StatusOK, statusView{
		Running:     true,
		UptimeSecs:  int64(time.Since(s.started).Seconds()),
		ActiveRuns:  s.processor.ActiveRuns(),
		DroppedEvts: s.hub.Dropped(),
		Catalog:     health,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Debug("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
