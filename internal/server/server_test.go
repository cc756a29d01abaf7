package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"clipstream/internal/bus"
	"clipstream/internal/catalog"
	"clipstream/internal/logging"
	"clipstream/internal/pipeline"
	"clipstream/internal/server"
	"clipstream/internal/testsupport"
)

type stubProber struct{}

func (stubProber) Probe(ctx context.Context, path string) (pipeline.Metadata, error) {
	return pipeline.Metadata{DurationSeconds: 9.5, VideoStreams: 1}, nil
}

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(ctx context.Context, path, title, description string) (pipeline.Verdict, error) {
	return pipeline.Verdict{Classification: catalog.SensitivitySafe, Confidence: 0.9}, nil
}

type itemView struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	MimeType    string  `json:"mimeType"`
	Size        int64   `json:"size"`
	Duration    float64 `json:"duration"`
	Status      string  `json:"status"`
	Sensitivity string  `json:"sensitivity"`
	Progress    int     `json:"progress"`
}

type apiFixture struct {
	baseURL string
	wsURL   string
	client  *http.Client
	store   *catalog.Store
	hub     *bus.Hub
}

func startAPI(t *testing.T) *apiFixture {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	hub := bus.NewHub(cfg.Pipeline.EventBuffer)
	t.Cleanup(hub.Close)

	processor := pipeline.NewProcessor(cfg, store, hub, stubProber{}, stubAnalyzer{}, logging.NewNop())
	t.Cleanup(processor.Close)

	srv := server.New(cfg, store, hub, processor, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("server.Start: %v", err)
	}
	t.Cleanup(srv.Stop)

	return &apiFixture{
		baseURL: "http://" + srv.Addr(),
		wsURL:   "ws://" + srv.Addr(),
		client:  &http.Client{Timeout: 5 * time.Second},
		store:   store,
		hub:     hub,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, f.baseURL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+testsupport.TenantToken)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (f *apiFixture) upload(t *testing.T, filename, title string, payload []byte) itemView {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if title != "" {
		if err := writer.WriteField("title", title); err != nil {
			t.Fatalf("write title field: %v", err)
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	resp := f.do(t, http.MethodPost, "/api/videos", &buf, writer.FormDataContentType())
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload status = %d: %s", resp.StatusCode, body)
	}

	var view itemView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	return view
}

func (f *apiFixture) waitForStatus(t *testing.T, id, want string) itemView {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp := f.do(t, http.MethodGet, "/api/videos/"+id, nil, "")
		var view itemView
		err := json.NewDecoder(resp.Body).Decode(&view)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decode item: %v", err)
		}
		if view.Status == want {
			return view
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("item %s never reached status %s", id, want)
	return itemView{}
}

func TestUploadQueuesAndProcesses(t *testing.T) {
	fx := startAPI(t)

	payload := bytes.Repeat([]byte("clipstream"), 100)
	view := fx.upload(t, "holiday.mp4", "Holiday", payload)

	if view.ID == "" {
		t.Fatal("expected assigned id")
	}
	if view.Status != string(catalog.StatusUploaded) {
		t.Fatalf("unexpected initial status: %s", view.Status)
	}
	if view.Title != "Holiday" {
		t.Fatalf("unexpected title: %s", view.Title)
	}
	if view.Size != int64(len(payload)) {
		t.Fatalf("unexpected size: %d", view.Size)
	}

	done := fx.waitForStatus(t, view.ID, string(catalog.StatusProcessed))
	if done.Progress != 100 {
		t.Fatalf("unexpected final progress: %d", done.Progress)
	}
	if done.Duration != 9.5 {
		t.Fatalf("unexpected duration: %f", done.Duration)
	}
	if done.Sensitivity != string(catalog.SensitivitySafe) {
		t.Fatalf("unexpected sensitivity: %s", done.Sensitivity)
	}
}

func TestUploadTitleDefaultsToFilename(t *testing.T) {
	fx := startAPI(t)

	view := fx.upload(t, "raw-clip.mp4", "", []byte("data"))
	if view.Title != "raw-clip.mp4" {
		t.Fatalf("unexpected title: %s", view.Title)
	}
}

func TestUploadWithoutFileRejected(t *testing.T) {
	fx := startAPI(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("title", "empty"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	writer.Close()

	resp := fx.do(t, http.MethodPost, "/api/videos", &buf, writer.FormDataContentType())
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	fx := startAPI(t)

	paths := []string{"/api/videos", "/api/status", "/api/videos/some-id"}
	for _, path := range paths {
		req, err := http.NewRequest(http.MethodGet, fx.baseURL+path, nil)
		if err != nil {
			t.Fatalf("build request: %v", err)
		}
		resp, err := fx.client.Do(req)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("GET %s without token: status = %d", path, resp.StatusCode)
		}
	}

	req, _ := http.NewRequest(http.MethodGet, fx.baseURL+"/api/videos", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	resp, err := fx.client.Do(req)
	if err != nil {
		t.Fatalf("GET with bad token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d", resp.StatusCode)
	}
}

func TestListReturnsTenantItems(t *testing.T) {
	fx := startAPI(t)

	fx.upload(t, "a.mp4", "A", []byte("aaaa"))
	fx.upload(t, "b.mp4", "B", []byte("bbbb"))

	resp := fx.do(t, http.MethodGet, "/api/videos", nil, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var views []itemView
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 items, got %d", len(views))
	}
}

func TestGetUnknownItem(t *testing.T) {
	fx := startAPI(t)

	resp := fx.do(t, http.MethodGet, "/api/videos/missing", nil, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestDeleteRemovesItemAndFile(t *testing.T) {
	fx := startAPI(t)

	view := fx.upload(t, "gone.mp4", "Gone", []byte("payload"))
	fx.waitForStatus(t, view.ID, string(catalog.StatusProcessed))

	resp := fx.do(t, http.MethodDelete, "/api/videos/"+view.ID, nil, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	resp = fx.do(t, http.MethodGet, "/api/videos/"+view.ID, nil, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestStreamEndpointServesRange(t *testing.T) {
	fx := startAPI(t)

	payload := bytes.Repeat([]byte("0123456789"), 100)
	view := fx.upload(t, "ranged.mp4", "Ranged", payload)
	fx.waitForStatus(t, view.ID, string(catalog.StatusProcessed))

	req, err := http.NewRequest(http.MethodGet, fx.baseURL+"/api/videos/"+view.ID+"/stream", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+testsupport.TenantToken)
	req.Header.Set("Range", "bytes=10-19")
	resp, err := fx.client.Do(req)
	if err != nil {
		t.Fatalf("stream request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Range"); got != fmt.Sprintf("bytes 10-19/%d", len(payload)) {
		t.Fatalf("content range = %q", got)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != string(payload[10:20]) {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	fx := startAPI(t)

	fx.upload(t, "clip.mp4", "Clip", []byte("x"))

	resp := fx.do(t, http.MethodGet, "/api/status", nil, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var status struct {
		Running bool `json:"running"`
		Catalog struct {
			Total int `json:"total"`
		} `json:"catalog"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running {
		t.Fatal("expected running")
	}
	if status.Catalog.Total != 1 {
		t.Fatalf("unexpected total: %d", status.Catalog.Total)
	}
}

func TestEventsWebsocketStreamsProgress(t *testing.T) {
	fx := startAPI(t)

	conn, resp, err := websocket.DefaultDialer.Dial(fx.wsURL+"/api/events?token="+testsupport.TenantToken, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// The handler subscribes just after the handshake completes; give it a
	// moment so the queued event is not published into the void.
	time.Sleep(100 * time.Millisecond)

	view := fx.upload(t, "live.mp4", "Live", []byte("payload"))

	sawQueued := false
	sawProgress := false
	deadline := time.Now().Add(5 * time.Second)
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			t.Fatalf("set deadline: %v", err)
		}
		var event bus.Event
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatalf("read event: %v (queued=%v progress=%v)", err, sawQueued, sawProgress)
		}
		if event.VideoID != view.ID {
			continue
		}
		switch event.Type {
		case bus.EventQueued:
			sawQueued = true
		case bus.EventProgress:
			sawProgress = true
		case bus.EventCompleted:
			if !sawProgress {
				t.Fatal("completed before any progress event")
			}
			if event.Progress == nil || *event.Progress != 100 {
				t.Fatalf("unexpected completion payload: %+v", event)
			}
			if !sawQueued {
				t.Fatal("missed queued event")
			}
			return
		case bus.EventError:
			t.Fatalf("unexpected error event: %+v", event)
		}
	}
}

func TestListStatusFilter(t *testing.T) {
	fx := startAPI(t)

	testsupport.NewItem(t, fx.store, "Pending", "/tmp/pending.mp4")
	done := testsupport.NewItem(t, fx.store, "Done", "/tmp/done.mp4")
	status := catalog.StatusProcessed
	if err := fx.store.UpdateFields(context.Background(), done.ID, catalog.FieldPatch{Status: &status}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	resp := fx.do(t, http.MethodGet, "/api/videos?status=uploaded", nil, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var views []itemView
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(views) != 1 || views[0].Title != "Pending" {
		t.Fatalf("unexpected filtered list: %+v", views)
	}

	bad := fx.do(t, http.MethodGet, "/api/videos?status=exploding", nil, "")
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown status filter: status = %d", bad.StatusCode)
	}
}

func TestQueryTokenOnlyAcceptedForEvents(t *testing.T) {
	fx := startAPI(t)

	req, err := http.NewRequest(http.MethodGet, fx.baseURL+"/api/videos?token="+testsupport.TenantToken, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := fx.client.Do(req)
	if err != nil {
		t.Fatalf("GET with query token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("query token outside /api/events: status = %d", resp.StatusCode)
	}
}

func TestEventsItemTopicIsTenantScoped(t *testing.T) {
	fx := startAPI(t)

	foreign := &catalog.Item{
		TenantID:         "other-tenant",
		Title:            "Secret",
		OriginalFilename: "secret.mp4",
		StoredPath:       "/tmp/secret.mp4",
	}
	if err := fx.store.Create(context.Background(), foreign); err != nil {
		t.Fatalf("Create: %v", err)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(
		fx.wsURL+"/api/events?token="+testsupport.TenantToken+"&item="+foreign.ID, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	time.Sleep(100 * time.Millisecond)

	// Mirror the pipeline's fan-out for the foreign tenant's item.
	event := bus.Progress(foreign.ID, 30, "")
	fx.hub.Publish(bus.ItemTopic(foreign.ID), event)
	fx.hub.Publish(bus.TenantTopic("other-tenant"), event)

	if err := conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	var leaked bus.Event
	if err := conn.ReadJSON(&leaked); err == nil {
		t.Fatalf("received another tenant's event: %+v", leaked)
	}
}

func TestEventsPinnedItemDeliveredOnce(t *testing.T) {
	fx := startAPI(t)

	item := testsupport.NewItem(t, fx.store, "Pinned", "/tmp/pinned.mp4")

	conn, resp, err := websocket.DefaultDialer.Dial(
		fx.wsURL+"/api/events?token="+testsupport.TenantToken+"&item="+item.ID, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	time.Sleep(100 * time.Millisecond)

	event := bus.Progress(item.ID, 40, "")
	fx.hub.Publish(bus.ItemTopic(item.ID), event)
	fx.hub.Publish(bus.TenantTopic(testsupport.TenantName), event)

	if err := conn.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	var first bus.Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if first.VideoID != item.ID || first.Progress == nil || *first.Progress != 40 {
		t.Fatalf("unexpected event: %+v", first)
	}

	if err := conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	var duplicate bus.Event
	if err := conn.ReadJSON(&duplicate); err == nil {
		t.Fatalf("event delivered twice: %+v", duplicate)
	}
}

func TestEventsWebsocketRejectsBadToken(t *testing.T) {
	fx := startAPI(t)

	_, resp, err := websocket.DefaultDialer.Dial(fx.wsURL+"/api/events?token=wrong", nil)
	if err == nil {
		t.Fatal("expected dial failure")
	}
	if resp != nil {
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		resp.Body.Close()
	}
}
