// File: internal/protocol/protocol.go
//
// Package protocol implements the newline-delimited JSON wire format spoken
// with the automation daemon. Each direction carries one encoded object per
// line; the exchange is strictly half-duplex per connection.
package protocol

import (
	"fmt"

	json "github.com/json-iterator/go"
)

// Response is the daemon's reply to a single command: either
// {"id": "...", "success": true, "data": {...}} or
// {"success": false, "error": "<message>"}.
type Response struct {
	ID      string         `json:"id,omitempty"`
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// EncodeCommand renders one newline-terminated request line. Params are
// flattened into the top-level object alongside id and action, so a command
// looks like {"id":"7","action":"navigate","url":"..."}.
func EncodeCommand(id, action string, params map[string]any) ([]byte, error) {
	obj := make(map[string]any, len(params)+2)
	for k, v := range params {
		obj[k] = v
	}
	obj["id"] = id
	obj["action"] = action

	line, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encoding %q command: %w", action, err)
	}
	return append(line, '\n'), nil
}

// DecodeResponse parses exactly one response line (without its newline).
func DecodeResponse(line []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("decoding response line: %w", err)
	}
	return &resp, nil
}
