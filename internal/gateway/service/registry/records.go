package registry

import (
	"context"

	"meshmeta/internal/gateway/entity"
	"meshmeta/internal/gateway/repository/entitystore"
)

// State and result records are stamped with the current time on every write.

func (s *Service) CreateFunctionState(ctx context.Context, in entity.FunctionState) (*entity.FunctionState, error) {
	in.Normalize(s.now())
	in.StateID = s.idOrNew(in.StateID)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.stores.FunctionStates.Create(ctx, &in)
}

func (s *Service) GetFunctionState(ctx context.Context, id string) (*entity.FunctionState, error) {
	return s.stores.FunctionStates.Get(ctx, entity.NormalizeKey(id))
}

func (s *Service) ListFunctionStates(ctx context.Context) ([]entity.FunctionState, error) {
	return s.stores.FunctionStates.List(ctx)
}

// FunctionStatesOf returns every state record of one function.
func (s *Service) FunctionStatesOf(ctx context.Context, functionID string) ([]entity.FunctionState, error) {
	return s.stores.FunctionStates.FindBy(ctx, "function_id", entity.NormalizeKey(functionID))
}

func (s *Service) UpdateFunctionState(ctx context.Context, id string, patch entity.StatePatch) (*entity.FunctionState, error) {
	return s.stores.FunctionStates.Update(ctx, entity.NormalizeKey(id), entitystore.Set(patch.Fields(s.now())))
}

func (s *Service) DeleteFunctionState(ctx context.Context, id string) error {
	return s.stores.FunctionStates.Delete(ctx, entity.NormalizeKey(id))
}

func (s *Service) CreateFunctionResult(ctx context.Context, in entity.FunctionResult) (*entity.FunctionResult, error) {
	in.Normalize(s.now())
	in.ResultID = s.idOrNew(in.ResultID)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.stores.FunctionResults.Create(ctx, &in)
}

func (s *Service) GetFunctionResult(ctx context.Context, id string) (*entity.FunctionResult, error) {
	return s.stores.FunctionResults.Get(ctx, entity.NormalizeKey(id))
}

func (s *Service) ListFunctionResults(ctx context.Context) ([]entity.FunctionResult, error) {
	return s.stores.FunctionResults.List(ctx)
}

func (s *Service) FunctionResultsOf(ctx context.Context, functionID string) ([]entity.FunctionResult, error) {
	return s.stores.FunctionResults.FindBy(ctx, "function_id", entity.NormalizeKey(functionID))
}

func (s *Service) UpdateFunctionResult(ctx context.Context, id string, patch entity.FunctionResultPatch) (*entity.FunctionResult, error) {
	return s.stores.FunctionResults.Update(ctx, entity.NormalizeKey(id), entitystore.Set(patch.Fields(s.now())))
}

func (s *Service) DeleteFunctionResult(ctx context.Context, id string) error {
	return s.stores.FunctionResults.Delete(ctx, entity.NormalizeKey(id))
}

func (s *Service) CreateEndpointState(ctx context.Context, in entity.EndpointState) (*entity.EndpointState, error) {
	in.Normalize(s.now())
	in.StateID = s.idOrNew(in.StateID)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.stores.EndpointStates.Create(ctx, &in)
}

func (s *Service) GetEndpointState(ctx context.Context, id string) (*entity.EndpointState, error) {
	return s.stores.EndpointStates.Get(ctx, entity.NormalizeKey(id))
}

func (s *Service) ListEndpointStates(ctx context.Context) ([]entity.EndpointState, error) {
	return s.stores.EndpointStates.List(ctx)
}

func (s *Service) EndpointStatesOf(ctx context.Context, endpointID string) ([]entity.EndpointState, error) {
	return s.stores.EndpointStates.FindBy(ctx, "endpoint_id", entity.NormalizeKey(endpointID))
}

func (s *Service) UpdateEndpointState(ctx context.Context, id string, patch entity.StatePatch) (*entity.EndpointState, error) {
	return s.stores.EndpointStates.Update(ctx, entity.NormalizeKey(id), entitystore.Set(patch.Fields(s.now())))
}

func (s *Service) DeleteEndpointState(ctx context.Context, id string) error {
	return s.stores.EndpointStates.Delete(ctx, entity.NormalizeKey(id))
}
