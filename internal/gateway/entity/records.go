package entity

import (
	"strings"
	"time"
)

const (
	KindFunctionState  = "function_state"
	KindFunctionResult = "function_result"
	KindEndpointState  = "endpoint_state"
)

// FunctionState is one observed transition of a Function. Several records may
// reference the same function.
type FunctionState struct {
	StateID    string         `bson:"state_id" json:"state_id"`
	FunctionID string         `bson:"function_id" json:"function_id"`
	State      string         `bson:"state" json:"state"`
	Metadata   map[string]any `bson:"metadata" json:"metadata,omitempty"`
	Timestamp  time.Time      `bson:"timestamp" json:"timestamp"`
}

func (s *FunctionState) Normalize(now time.Time) {
	s.StateID = NormalizeKey(s.StateID)
	s.FunctionID = NormalizeKey(s.FunctionID)
	s.State = strings.TrimSpace(s.State)
	if s.Metadata == nil {
		s.Metadata = map[string]any{}
	}
	s.Timestamp = now
}

func (s *FunctionState) Validate() error {
	if s.FunctionID == "" {
		return invalid("function_id", "is required")
	}
	return nil
}

type EndpointState struct {
	StateID    string         `bson:"state_id" json:"state_id"`
	EndpointID string         `bson:"endpoint_id" json:"endpoint_id"`
	State      string         `bson:"state" json:"state"`
	Metadata   map[string]any `bson:"metadata" json:"metadata,omitempty"`
	Timestamp  time.Time      `bson:"timestamp" json:"timestamp"`
}

func (s *EndpointState) Normalize(now time.Time) {
	s.StateID = NormalizeKey(s.StateID)
	s.EndpointID = NormalizeKey(s.EndpointID)
	s.State = strings.TrimSpace(s.State)
	if s.Metadata == nil {
		s.Metadata = map[string]any{}
	}
	s.Timestamp = now
}

func (s *EndpointState) Validate() error {
	if s.EndpointID == "" {
		return invalid("endpoint_id", "is required")
	}
	return nil
}

// StatePatch updates either kind of state record.
type StatePatch struct {
	State    *string        `json:"state,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Fields always restamps the record.
func (p StatePatch) Fields(now time.Time) Fields {
	out := Fields{"timestamp": now}
	setString(out, "state", p.State)
	if p.Metadata != nil {
		out["metadata"] = p.Metadata
	}
	return out
}

// FunctionResult is a terminal output snapshot of a Function.
type FunctionResult struct {
	ResultID   string         `bson:"result_id" json:"result_id"`
	FunctionID string         `bson:"function_id" json:"function_id"`
	Metadata   map[string]any `bson:"metadata" json:"metadata,omitempty"`
	Timestamp  time.Time      `bson:"timestamp" json:"timestamp"`
}

func (r *FunctionResult) Normalize(now time.Time) {
	r.ResultID = NormalizeKey(r.ResultID)
	r.FunctionID = NormalizeKey(r.FunctionID)
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	r.Timestamp = now
}

func (r *FunctionResult) Validate() error {
	if r.FunctionID == "" {
		return invalid("function_id", "is required")
	}
	return nil
}

type FunctionResultPatch struct {
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (p FunctionResultPatch) Fields(now time.Time) Fields {
	out := Fields{"timestamp": now}
	if p.Metadata != nil {
		out["metadata"] = p.Metadata
	}
	return out
}
