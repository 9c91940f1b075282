package rpc

import "time"

// Document is one record of a remote collection. ID is assigned by the
// server on create.
type Document struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	Data       map[string]any `json:"data"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

type ListRequest struct {
	Collection string `json:"collection"`
}

type ListResponse struct {
	Documents []Document `json:"documents"`
}

type GetRequest struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

type CreateRequest struct {
	Collection string         `json:"collection"`
	Data       map[string]any `json:"data"`
}

// UpdateRequest merges Patch into the stored document; null values remove
// keys.
type UpdateRequest struct {
	Collection string         `json:"collection"`
	ID         string         `json:"id"`
	Patch      map[string]any `json:"patch"`
}

type DeleteRequest struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

type DocumentResponse struct {
	Document Document `json:"document"`
}

type Empty struct{}

type SubscribeRequest struct {
	Collection string `json:"collection"`
}

// Snapshot is the full content of a collection at one point in time.
type Snapshot struct {
	Collection string     `json:"collection"`
	Documents  []Document `json:"documents"`
}
