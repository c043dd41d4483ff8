package hubsdk

import (
	"time"

	"github.com/goccy/go-json"
)

const (
	HeaderUserAgent   = "User-Agent"
	HeaderRequestID   = "X-Request-Id"
	HeaderHubVersion  = "X-Hubsync-Version"
	HeaderIfMatch     = "If-Match"
	QueryModifiedFrom = "modifiedSince"
)

// ItemMeta describes an item without its content.
type ItemMeta struct {
	ID           string    `json:"id"`
	Rev          string    `json:"rev"`
	Path         string    `json:"path,omitempty"`
	Status       string    `json:"status,omitempty"`
	ParentID     string    `json:"parentId,omitempty"`
	ContentType  string    `json:"contentType,omitempty"`
	Size         int64     `json:"size,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

// Item is an item with its content. JSON documents travel as Content, binary
// assets as base64 encoded Data.
type Item struct {
	ItemMeta
	Content json.RawMessage `json:"content,omitempty"`
	Data    []byte          `json:"data,omitempty"`
}

type ListResponse struct {
	Items []ItemMeta `json:"items"`
}

type WriteRequest struct {
	Path        string          `json:"path,omitempty"`
	Rev         string          `json:"rev,omitempty"`
	ContentType string          `json:"contentType,omitempty"`
	Content     json.RawMessage `json:"content,omitempty"`
	Data        []byte          `json:"data,omitempty"`
}

type WriteResponse struct {
	ID           string    `json:"id"`
	Rev          string    `json:"rev"`
	LastModified time.Time `json:"lastModified"`
}
