// Package detect talks to the external SIBI detection server (YOLO over a webcam).
package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Status is the detection server's /status payload.
type Status struct {
	CameraActive    bool    `json:"camera_active"`
	FramesProcessed int     `json:"frames_processed"`
	TotalDetections int     `json:"total_detections"`
	LastDetection   string  `json:"last_detection"`
	LastConfidence  float64 `json:"last_confidence"`
	FPS             float64 `json:"fps"`
	CurrentCameraID int     `json:"current_camera_id"`
}

type Camera struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Backend string `json:"backend"`
}

type CameraList struct {
	Cameras         []Camera `json:"cameras"`
	CurrentCameraID int      `json:"current_camera_id"`
	Total           int      `json:"total"`
}

// ControlResult is the answer to a camera start/stop/switch request.
type ControlResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	CameraID *int   `json:"camera_id,omitempty"`
}

// StatusSource is what the quiz needs from the detection server.
type StatusSource interface {
	Status(ctx context.Context) (Status, error)
}

type Client struct {
	BaseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8003"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), http: &http.Client{Timeout: timeout}}
}

// StreamURL is the MJPEG feed with the detection overlay.
func (c *Client) StreamURL() string { return c.BaseURL + "/video_feed" }

func (c *Client) Status(ctx context.Context) (Status, error) {
	var out Status
	err := c.do(ctx, http.MethodGet, "/status", &out)
	return out, err
}

func (c *Client) Cameras(ctx context.Context) (CameraList, error) {
	var out CameraList
	err := c.do(ctx, http.MethodGet, "/cameras", &out)
	return out, err
}

func (c *Client) StartCamera(ctx context.Context) (ControlResult, error) {
	return c.control(ctx, "/start_camera")
}

func (c *Client) StopCamera(ctx context.Context) (ControlResult, error) {
	return c.control(ctx, "/stop_camera")
}

func (c *Client) SwitchCamera(ctx context.Context, id int) (ControlResult, error) {
	return c.control(ctx, "/switch_camera/"+strconv.Itoa(id))
}

func (c *Client) control(ctx context.Context, path string) (ControlResult, error) {
	var out ControlResult
	if err := c.do(ctx, http.MethodPost, path, &out); err != nil {
		return out, err
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "request rejected"
		}
		return out, fmt.Errorf("detect %s: %s", path, msg)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("detect status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
