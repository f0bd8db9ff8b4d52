package entity

import "strings"

const KindActiveObject = "active_object"

// InitMethod names the constructor entry when a schema is flattened into a
// method list.
const InitMethod = "init"

// Schema is the structural description derived from an ActiveObject's code.
type Schema struct {
	ClassName string              `bson:"class_name" json:"class_name"`
	Init      []string            `bson:"init" json:"init"`
	Methods   map[string][]string `bson:"methods" json:"methods"`
}

type FunctionDescriptor struct {
	Name       string   `bson:"name" json:"name"`
	Parameters []string `bson:"parameters" json:"parameters"`
}

type ActiveObject struct {
	ActiveObjectID string               `bson:"active_object_id" json:"active_object_id"`
	MicroserviceID string               `bson:"microservice_id" json:"microservice_id"`
	Module         string               `bson:"module" json:"module"`
	ClassName      string               `bson:"class_name" json:"class_name,omitempty"`
	Version        int                  `bson:"version" json:"version"`
	Code           string               `bson:"code,omitempty" json:"code,omitempty"`
	Schema         *Schema              `bson:"schema,omitempty" json:"schema,omitempty"`
	Functions      []FunctionDescriptor `bson:"functions" json:"functions"`
	ReadOnly       bool                 `bson:"read_only" json:"read_only"`
	StorageBuckets []string             `bson:"storage_buckets" json:"storage_buckets,omitempty"`
}

func (a *ActiveObject) Normalize() {
	a.ActiveObjectID = NormalizeKey(a.ActiveObjectID)
	a.MicroserviceID = NormalizeKey(a.MicroserviceID)
	a.Module = strings.TrimSpace(a.Module)
	a.ClassName = strings.TrimSpace(a.ClassName)
	if a.Functions == nil {
		a.Functions = []FunctionDescriptor{}
	}
	if a.StorageBuckets == nil {
		a.StorageBuckets = []string{}
	}
}

func (a *ActiveObject) Validate() error {
	if a.MicroserviceID == "" {
		return invalid("microservice_id", "is required")
	}
	if a.Module == "" {
		return invalid("module", "is required")
	}
	if a.Version < 0 {
		return invalid("version", "must not be negative")
	}
	return nil
}

// HasCode reports whether a non-blank code blob is attached.
func (a *ActiveObject) HasCode() bool {
	return strings.TrimSpace(a.Code) != ""
}

type ActiveObjectPatch struct {
	MicroserviceID *string   `json:"microservice_id,omitempty"`
	Module         *string   `json:"module,omitempty"`
	ClassName      *string   `json:"class_name,omitempty"`
	Version        *int      `json:"version,omitempty"`
	Code           *string   `json:"code,omitempty"`
	ReadOnly       *bool     `json:"read_only,omitempty"`
	StorageBuckets *[]string `json:"storage_buckets,omitempty"`
}

func (p ActiveObjectPatch) Validate() error {
	if p.MicroserviceID != nil && NormalizeKey(*p.MicroserviceID) == "" {
		return invalid("microservice_id", "must not be empty")
	}
	if p.Module != nil && strings.TrimSpace(*p.Module) == "" {
		return invalid("module", "must not be empty")
	}
	if p.Version != nil && *p.Version < 0 {
		return invalid("version", "must not be negative")
	}
	return nil
}

// HasCode reports whether the patch carries a non-blank code blob.
func (p ActiveObjectPatch) HasCode() bool {
	return p.Code != nil && strings.TrimSpace(*p.Code) != ""
}

// Fields does not include schema or functions; those are derived from the
// code by the registry.
func (p ActiveObjectPatch) Fields() Fields {
	out := Fields{}
	setString(out, "microservice_id", p.MicroserviceID)
	setString(out, "module", p.Module)
	setString(out, "class_name", p.ClassName)
	if p.Version != nil {
		out["version"] = *p.Version
	}
	if p.Code != nil {
		out["code"] = *p.Code
	}
	if p.ReadOnly != nil {
		out["read_only"] = *p.ReadOnly
	}
	setStrings(out, "storage_buckets", p.StorageBuckets)
	return out
}
