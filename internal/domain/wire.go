package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Knouxai/Knoux-versa-sub002/internal/geometry"
)

// TransformPayload is the JSON body of a transform submission.
type TransformPayload struct {
	JobID       string          `json:"jobId,omitempty"`
	Image       string          `json:"image"`
	Prompt      string          `json:"prompt"`
	ToolID      string          `json:"toolId"`
	Selection   json.RawMessage `json:"selection"`
	Quality     Quality         `json:"quality"`
	IsVIP       bool            `json:"isVIP"`
	VIPToken    string          `json:"vipToken,omitempty"`
	SecondImage string          `json:"secondImage,omitempty"`
	Settings    map[string]any  `json:"settings,omitempty"`
	Scale       float64         `json:"scale,omitempty"`
}

// TransformResponse is the JSON body returned by the transform endpoint.
type TransformResponse struct {
	Success          bool   `json:"success"`
	JobID            string `json:"jobId,omitempty"`
	ResultImage      string `json:"resultImage,omitempty"`
	ProcessingTimeMs int64  `json:"processingTimeMs,omitempty"`
	Error            string `json:"error,omitempty"`
}

// ProgressEvent is one server-pushed progress update.
type ProgressEvent struct {
	JobID    string  `json:"jobId"`
	Progress float64 `json:"progress"`
}

// VIPAuthRequest is the body of the VIP authentication endpoint.
type VIPAuthRequest struct {
	VIPKey string `json:"vipKey"`
}

// VIPAuthResponse carries the session token on success.
type VIPAuthResponse struct {
	Success      bool   `json:"success"`
	SessionToken string `json:"sessionToken,omitempty"`
	Error        string `json:"error,omitempty"`
}

// CatalogResponse is the body of the tool catalog endpoint.
type CatalogResponse struct {
	Tools      []Tool     `json:"tools"`
	Categories []Category `json:"categories"`
}

// Payload converts the request into its wire form tagged with jobID.
func (r TransformRequest) Payload(jobID string) (TransformPayload, error) {
	selection, err := geometry.MarshalShape(r.Selection)
	if err != nil {
		return TransformPayload{}, err
	}
	p := TransformPayload{
		JobID:       jobID,
		Image:       r.ImageRef,
		Prompt:      r.Prompt,
		ToolID:      r.ToolID,
		Selection:   selection,
		Quality:     r.Quality,
		IsVIP:       r.IsVIP,
		SecondImage: r.SecondImageRef,
		Settings:    r.Settings.Native(),
		Scale:       r.Scale,
	}
	if r.VIPSessionToken != nil {
		p.VIPToken = *r.VIPSessionToken
	}
	return p, nil
}

// Request decodes the payload back into a TransformRequest. Settings stay
// untyped here; the request builder re-validates them against the tool.
func (p TransformPayload) Request() (TransformRequest, map[string]any, error) {
	selection, err := geometry.UnmarshalShape(p.Selection)
	if err != nil {
		return TransformRequest{}, nil, fmt.Errorf("selection: %w", err)
	}
	quality, err := ParseQuality(string(p.Quality))
	if err != nil {
		return TransformRequest{}, nil, err
	}
	req := TransformRequest{
		ImageRef:       p.Image,
		SecondImageRef: p.SecondImage,
		Prompt:         p.Prompt,
		ToolID:         strings.TrimSpace(p.ToolID),
		Selection:      selection,
		Quality:        quality,
		IsVIP:          p.IsVIP,
		Scale:          p.Scale,
	}
	if token := strings.TrimSpace(p.VIPToken); token != "" {
		req.VIPSessionToken = &token
	}
	return req, p.Settings, nil
}
