package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RawMessage represents an unprocessed message from the request topic.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ReportRequest asks for the report of one selection. A nil TopN leaves the
// ranking length to the service default.
type ReportRequest struct {
	ID        string          `json:"id"`
	Selection FilterSelection `json:"selection"`
	TopN      *int            `json:"top_n,omitempty"`
}

// ParseReportRequest decodes a request message. The request ID falls back to
// the message key, then to the selection ID.
func ParseReportRequest(raw RawMessage) (ReportRequest, error) {
	if len(raw.Value) == 0 {
		return ReportRequest{}, errors.New("empty request payload")
	}
	var req ReportRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return ReportRequest{}, fmt.Errorf("unmarshal report request: %w", err)
	}
	if req.TopN != nil && *req.TopN < 0 {
		return ReportRequest{}, fmt.Errorf("invalid top_n %d", *req.TopN)
	}
	if req.ID == "" {
		req.ID = string(raw.Key)
	}
	if req.ID == "" {
		req.ID = req.Selection.ID()
	}
	return req, nil
}

// ReportMessage is a computed report addressed to the request that asked for it.
type ReportMessage struct {
	RequestID string
	Report    Report
}
