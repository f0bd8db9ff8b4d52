package api

import "meshmeta/internal/gateway/service/hierarchy"

// KeyRequest addresses one document by natural key.
type KeyRequest struct {
	ID string `json:"id"`
}

// OwnerRequest selects the records that belong to one function or endpoint.
type OwnerRequest struct {
	OwnerID string `json:"owner_id"`
}

type UpdateRequest[P any] struct {
	ID    string `json:"id"`
	Patch P      `json:"patch"`
}

type ListResponse[T any] struct {
	Items []T `json:"items"`
}

type ExtractSchemaRequest struct {
	Code string `json:"code"`
}

type ExtractSchemaResponse struct {
	ClassName string              `json:"class_name"`
	Init      []string            `json:"init"`
	Methods   map[string][]string `json:"methods"`
	// Status is "ok", "no_class" or "malformed".
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type HierarchyResponse struct {
	Services []hierarchy.Service `json:"services"`
}
