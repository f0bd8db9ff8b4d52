// Package hierarchy assembles the read-only Service -> Microservice ->
// ActiveObject -> method tree. Nothing is cached; every call reads the
// collections again.
package hierarchy

import (
	"context"
	"sort"

	"meshmeta/internal/gateway/entity"
	"meshmeta/internal/gateway/repository/entitystore"
)

type Method struct {
	Name       string   `json:"name"`
	Parameters []string `json:"parameters"`
}

type ActiveObject struct {
	ActiveObjectID string   `json:"active_object_id"`
	Module         string   `json:"module"`
	ClassName      string   `json:"class_name"`
	Methods        []Method `json:"methods"`
}

type Microservice struct {
	MicroserviceID string         `json:"microservice_id"`
	ActiveObjects  []ActiveObject `json:"active_objects"`
}

type Service struct {
	ServiceID     string         `json:"service_id"`
	Microservices []Microservice `json:"microservices"`
}

type Projector struct {
	stores *entitystore.Stores
}

func New(stores *entitystore.Stores) *Projector {
	return &Projector{stores: stores}
}

// Build walks services, the microservices whose service_id matches each
// service, and the active objects whose microservice_id matches each
// microservice.
func (p *Projector) Build(ctx context.Context) ([]Service, error) {
	services, err := p.stores.Services.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Service, 0, len(services))
	for _, svc := range services {
		node := Service{ServiceID: svc.ServiceID, Microservices: []Microservice{}}
		micros, err := p.stores.Microservices.FindBy(ctx, "service_id", svc.ServiceID)
		if err != nil {
			return nil, err
		}
		for _, ms := range micros {
			msNode, err := p.microservice(ctx, ms)
			if err != nil {
				return nil, err
			}
			node.Microservices = append(node.Microservices, msNode)
		}
		out = append(out, node)
	}
	return out, nil
}

func (p *Projector) microservice(ctx context.Context, ms entity.Microservice) (Microservice, error) {
	node := Microservice{MicroserviceID: ms.MicroserviceID, ActiveObjects: []ActiveObject{}}
	objects, err := p.stores.ActiveObjects.FindBy(ctx, "microservice_id", ms.MicroserviceID)
	if err != nil {
		return node, err
	}
	for _, ao := range objects {
		className := ao.ClassName
		if ao.Schema != nil && className == "" {
			className = ao.Schema.ClassName
		}
		node.ActiveObjects = append(node.ActiveObjects, ActiveObject{
			ActiveObjectID: ao.ActiveObjectID,
			Module:         ao.Module,
			ClassName:      className,
			Methods:        Methods(ao.Schema),
		})
	}
	return node, nil
}

// Methods flattens a schema: the constructor as "init", then every other
// method by name.
func Methods(schema *entity.Schema) []Method {
	if schema == nil {
		return []Method{}
	}
	ctor := schema.Init
	if ctor == nil {
		ctor = []string{}
	}
	out := []Method{{Name: entity.InitMethod, Parameters: ctor}}
	names := make([]string, 0, len(schema.Methods))
	for name := range schema.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		params := schema.Methods[name]
		if params == nil {
			params = []string{}
		}
		out = append(out, Method{Name: name, Parameters: params})
	}
	return out
}
