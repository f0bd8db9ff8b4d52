package registry

import (
	"context"

	"meshmeta/internal/codeschema"
	"meshmeta/internal/gateway/entity"
	"meshmeta/internal/gateway/repository/docstore"
	"meshmeta/internal/gateway/repository/entitystore"
)

// derive runs the extractor and converts its output to the stored shape.
func (s *Service) derive(ctx context.Context, id, code string) (*entity.Schema, []entity.FunctionDescriptor) {
	res := codeschema.ExtractContext(ctx, code)
	if res.Degraded() {
		s.log.Debugw("schema extraction degraded to default",
			"active_object_id", id,
			"status", res.Status.String(),
			"reason", res.Reason,
		)
	}
	schema := &entity.Schema{
		ClassName: res.Schema.ClassName,
		Init:      res.Schema.Init,
		Methods:   res.Schema.Methods,
	}
	fns := res.Schema.Functions()
	descriptors := make([]entity.FunctionDescriptor, 0, len(fns))
	for _, fn := range fns {
		descriptors = append(descriptors, entity.FunctionDescriptor{Name: fn.Name, Parameters: fn.Parameters})
	}
	return schema, descriptors
}

// CreateActiveObject derives schema and functions from the code when code is
// present. Caller-supplied schema and functions are discarded.
func (s *Service) CreateActiveObject(ctx context.Context, in entity.ActiveObject) (*entity.ActiveObject, error) {
	in.Normalize()
	in.ActiveObjectID = s.idOrNew(in.ActiveObjectID)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in.Schema = nil
	in.Functions = []entity.FunctionDescriptor{}
	if in.HasCode() {
		in.Schema, in.Functions = s.derive(ctx, in.ActiveObjectID, in.Code)
		if in.ClassName == "" {
			in.ClassName = in.Schema.ClassName
		}
	}
	return s.stores.ActiveObjects.Create(ctx, &in)
}

func (s *Service) GetActiveObject(ctx context.Context, id string) (*entity.ActiveObject, error) {
	return s.stores.ActiveObjects.Get(ctx, entity.NormalizeKey(id))
}

func (s *Service) ListActiveObjects(ctx context.Context) ([]entity.ActiveObject, error) {
	return s.stores.ActiveObjects.List(ctx)
}

// UpdateActiveObject overwrites schema and functions whenever the patch
// carries code, and the class name too unless the patch names one. Without
// code they stay as stored.
func (s *Service) UpdateActiveObject(ctx context.Context, id string, patch entity.ActiveObjectPatch) (*entity.ActiveObject, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	id = entity.NormalizeKey(id)
	fields := patch.Fields()
	if patch.HasCode() {
		schema, fns := s.derive(ctx, id, *patch.Code)
		fields["schema"] = schema
		fields["functions"] = fns
		if patch.ClassName == nil {
			fields["class_name"] = schema.ClassName
		}
	}
	return s.stores.ActiveObjects.Update(ctx, id, entitystore.Set(fields))
}

func (s *Service) DeleteActiveObject(ctx context.Context, id string) error {
	return s.stores.ActiveObjects.Delete(ctx, entity.NormalizeKey(id))
}

// GetSchema returns the stored schema. When none is stored it is derived from
// the code and persisted; an object without code fails validation.
func (s *Service) GetSchema(ctx context.Context, id string) (*entity.Schema, error) {
	id = entity.NormalizeKey(id)
	obj, err := s.stores.ActiveObjects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if obj.Schema != nil {
		return obj.Schema, nil
	}
	if !obj.HasCode() {
		return nil, &entity.ValidationError{Field: "code", Reason: "is required to derive a schema"}
	}
	schema, fns := s.derive(ctx, id, obj.Code)
	update := docstore.Update{Set: docstore.Fields{"schema": schema, "functions": fns}}
	stored, err := s.stores.ActiveObjects.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}
	return stored.Schema, nil
}

// ExtractSchema parses code without touching the store.
func (s *Service) ExtractSchema(ctx context.Context, code string) codeschema.Result {
	return codeschema.ExtractContext(ctx, code)
}
