package entity

import "strings"

const (
	KindService      = "service"
	KindMicroservice = "microservice"
	KindFunction     = "function"
	KindEndpoint     = "endpoint"
)

// Function deployment states. The field is free-form; these are the values the
// gateway itself writes.
const (
	FunctionPending  = "pending"
	FunctionDeployed = "deployed"
	FunctionFailed   = "failed"
)

type Service struct {
	ServiceID      string    `bson:"service_id" json:"service_id"`
	SecurityPolicy string    `bson:"security_policy" json:"security_policy,omitempty"`
	Resources      Resources `bson:"resources" json:"resources"`
	// Microservices is the authoritative membership set. It is only written
	// by the registry when a child is created, reparented or deleted.
	Microservices []string `bson:"microservices" json:"microservices"`
}

func (s *Service) Normalize() {
	s.ServiceID = NormalizeKey(s.ServiceID)
	s.SecurityPolicy = strings.TrimSpace(s.SecurityPolicy)
	if s.Microservices == nil {
		s.Microservices = []string{}
	}
}

func (s *Service) Validate(l Limits) error {
	return l.ValidateResources(s.Resources)
}

type ServicePatch struct {
	SecurityPolicy *string         `json:"security_policy,omitempty"`
	Resources      *ResourcesPatch `json:"resources,omitempty"`
}

func (p ServicePatch) Validate(l Limits) error {
	return l.ValidateResourcesPatch(p.Resources)
}

func (p ServicePatch) Fields() Fields {
	out := Fields{}
	setString(out, "security_policy", p.SecurityPolicy)
	p.Resources.fields("resources", out)
	return out
}

type Microservice struct {
	MicroserviceID string    `bson:"microservice_id" json:"microservice_id"`
	ServiceID      string    `bson:"service_id" json:"service_id"`
	Resources      Resources `bson:"resources" json:"resources"`
	Functions      []string  `bson:"functions" json:"functions"`
}

func (m *Microservice) Normalize() {
	m.MicroserviceID = NormalizeKey(m.MicroserviceID)
	m.ServiceID = NormalizeKey(m.ServiceID)
	if m.Functions == nil {
		m.Functions = []string{}
	}
}

func (m *Microservice) Validate(l Limits) error {
	if m.ServiceID == "" {
		return invalid("service_id", "is required")
	}
	return l.ValidateResources(m.Resources)
}

type MicroservicePatch struct {
	ServiceID *string         `json:"service_id,omitempty"`
	Resources *ResourcesPatch `json:"resources,omitempty"`
}

func (p MicroservicePatch) Validate(l Limits) error {
	if p.ServiceID != nil && NormalizeKey(*p.ServiceID) == "" {
		return invalid("service_id", "must not be empty")
	}
	return l.ValidateResourcesPatch(p.Resources)
}

func (p MicroservicePatch) Fields() Fields {
	out := Fields{}
	setString(out, "service_id", p.ServiceID)
	p.Resources.fields("resources", out)
	return out
}

type Function struct {
	FunctionID     string    `bson:"function_id" json:"function_id"`
	MicroserviceID string    `bson:"microservice_id" json:"microservice_id"`
	EndpointID     string    `bson:"endpoint_id" json:"endpoint_id,omitempty"`
	Resources      Resources `bson:"resources" json:"resources"`
	Storage        Storage   `bson:"storage" json:"storage"`
	Status         string    `bson:"status" json:"status"`
	Image          string    `bson:"image" json:"image,omitempty"`
}

func (f *Function) Normalize() {
	f.FunctionID = NormalizeKey(f.FunctionID)
	f.MicroserviceID = NormalizeKey(f.MicroserviceID)
	f.EndpointID = NormalizeKey(f.EndpointID)
	f.Status = strings.TrimSpace(f.Status)
	f.Image = strings.TrimSpace(f.Image)
	if f.Status == "" {
		f.Status = FunctionPending
	}
}

func (f *Function) Validate(l Limits) error {
	if f.MicroserviceID == "" {
		return invalid("microservice_id", "is required")
	}
	if err := l.ValidateResources(f.Resources); err != nil {
		return err
	}
	return f.Storage.Validate()
}

type FunctionPatch struct {
	MicroserviceID *string         `json:"microservice_id,omitempty"`
	EndpointID     *string         `json:"endpoint_id,omitempty"`
	Resources      *ResourcesPatch `json:"resources,omitempty"`
	Storage        *StoragePatch   `json:"storage,omitempty"`
	Status         *string         `json:"status,omitempty"`
	Image          *string         `json:"image,omitempty"`
}

func (p FunctionPatch) Validate(l Limits) error {
	if p.MicroserviceID != nil && NormalizeKey(*p.MicroserviceID) == "" {
		return invalid("microservice_id", "must not be empty")
	}
	if err := l.ValidateResourcesPatch(p.Resources); err != nil {
		return err
	}
	return p.Storage.Validate()
}

func (p FunctionPatch) Fields() Fields {
	out := Fields{}
	setString(out, "microservice_id", p.MicroserviceID)
	setString(out, "endpoint_id", p.EndpointID)
	p.Resources.fields("resources", out)
	p.Storage.fields("storage", out)
	setString(out, "status", p.Status)
	setString(out, "image", p.Image)
	return out
}

// Deployment carries what the orchestration collaborator needs beyond the
// endpoint's own image and resources.
type Deployment struct {
	Env map[string]string `bson:"env" json:"env,omitempty"`
}

type Endpoint struct {
	EndpointID     string      `bson:"endpoint_id" json:"endpoint_id"`
	Name           string      `bson:"name" json:"name"`
	Image          string      `bson:"image" json:"image"`
	Resources      Resources   `bson:"resources" json:"resources"`
	SecurityPolicy string      `bson:"security_policy" json:"security_policy,omitempty"`
	Deployment     *Deployment `bson:"deployment,omitempty" json:"deployment,omitempty"`
}

func (e *Endpoint) Normalize() {
	e.EndpointID = NormalizeKey(e.EndpointID)
	e.Name = strings.TrimSpace(e.Name)
	e.Image = strings.TrimSpace(e.Image)
	e.SecurityPolicy = strings.TrimSpace(e.SecurityPolicy)
}

func (e *Endpoint) Validate(l Limits) error {
	if e.Name == "" {
		return invalid("name", "is required")
	}
	if e.Image == "" {
		return invalid("image", "is required")
	}
	return l.ValidateResources(e.Resources)
}

type EndpointPatch struct {
	Name           *string         `json:"name,omitempty"`
	Image          *string         `json:"image,omitempty"`
	Resources      *ResourcesPatch `json:"resources,omitempty"`
	SecurityPolicy *string         `json:"security_policy,omitempty"`
	Deployment     *Deployment     `json:"deployment,omitempty"`
}

func (p EndpointPatch) Validate(l Limits) error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return invalid("name", "must not be empty")
	}
	if p.Image != nil && strings.TrimSpace(*p.Image) == "" {
		return invalid("image", "must not be empty")
	}
	return l.ValidateResourcesPatch(p.Resources)
}

func (p EndpointPatch) Fields() Fields {
	out := Fields{}
	setString(out, "name", p.Name)
	setString(out, "image", p.Image)
	p.Resources.fields("resources", out)
	setString(out, "security_policy", p.SecurityPolicy)
	if p.Deployment != nil {
		out["deployment"] = *p.Deployment
	}
	return out
}
