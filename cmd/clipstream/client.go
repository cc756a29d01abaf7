package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type requestBody struct {
	reader      io.Reader
	contentType string
}

type videoView struct {
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

type catalogSummaryView struct {
	Total      int `json:"total"`
	Uploaded   int `json:"uploaded"`
	Processing int `json:"processing"`
	Processed  int `json:"processed"`
	Failed     int `json:"failed"`
}

type serverStatusView struct {
	Running     bool               `json:"running"`
	UptimeSecs  int64              `json:"uptimeSeconds"`
	ActiveRuns  int                `json:"activeRuns"`
	DroppedEvts int64              `json:"droppedEvents"`
	Catalog     catalogSummaryView `json:"catalog"`
}

type apiErrorView struct {
	Error string `json:"error"`
}

// doJSON performs the request and decodes a 2xx JSON response into out.
// Error responses are surfaced with the server's error message when present.
func doJSON(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var view apiErrorView
	if err := json.Unmarshal(body, &view); err == nil && view.Error != "" {
		return fmt.Errorf("server returned %s: %s", resp.Status, view.Error)
	}
	return fmt.Errorf("server returned %s", resp.Status)
}
