package store

import (
	"encoding/json"
	"fmt"

	pbmcp "github.com/minhdtb/pocketbase-cursor-mcp"
)

// Record is one stored record, decoded as loose JSON.
type Record map[string]any

// ID returns the record's id, or empty if unset.
func (r Record) ID() string {
	id, _ := r["id"].(string)

	return id
}

// ListOptions control record listing.
type ListOptions struct {
	Page    int
	PerPage int
	Filter  string
	Sort    string
}

// RecordList is one page of records.
type RecordList struct {
	Page       int      `json:"page"`
	PerPage    int      `json:"perPage"`
	TotalItems int      `json:"totalItems"`
	Items      []Record `json:"items"`
}

// CollectionList is one page of collection schemas.
type CollectionList struct {
	Page       int                `json:"page"`
	PerPage    int                `json:"perPage"`
	TotalItems int                `json:"totalItems"`
	Items      []pbmcp.Collection `json:"items"`
}

// APIError is the store's structured error payload.
type APIError struct {
	Status  int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Error returns the store's raw error detail.
func (e *APIError) Error() string {
	return fmt.Sprintf("store: %s (status %d)", e.Message, e.Status)
}

// decodeAPIError turns a non-2xx response body into an *APIError. Bodies
// that are not the structured payload are carried verbatim as the message.
func decodeAPIError(status int, body []byte) error {
	apiErr := &APIError{Status: status}

	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = string(body)
	}

	if apiErr.Message == "" {
		apiErr.Message = "request failed"
	}

	if apiErr.Status == 0 {
		apiErr.Status = status
	}

	return apiErr
}
