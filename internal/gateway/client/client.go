// Package client mirrors the gateway's procedures over connect so that other
// programs (and meshctl) can drive the registry remotely.
package client

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"meshmeta/internal/gateway/api"
	"meshmeta/internal/gateway/entity"
)

// Collection is the typed CRUD client for one entity kind.
type Collection[T, P any] struct {
	create *connect.Client[T, T]
	get    *connect.Client[api.KeyRequest, T]
	list   *connect.Client[emptypb.Empty, api.ListResponse[T]]
	update *connect.Client[api.UpdateRequest[P], T]
	remove *connect.Client[api.KeyRequest, emptypb.Empty]
}

func newCollection[T, P any](hc connect.HTTPClient, baseURL, service string, opts []connect.ClientOption) *Collection[T, P] {
	url := func(method string) string { return baseURL + api.Procedure(service, method) }
	return &Collection[T, P]{
		create: connect.NewClient[T, T](hc, url(api.MethodCreate), opts...),
		get:    connect.NewClient[api.KeyRequest, T](hc, url(api.MethodGet), opts...),
		list:   connect.NewClient[emptypb.Empty, api.ListResponse[T]](hc, url(api.MethodList), opts...),
		update: connect.NewClient[api.UpdateRequest[P], T](hc, url(api.MethodUpdate), opts...),
		remove: connect.NewClient[api.KeyRequest, emptypb.Empty](hc, url(api.MethodDelete), opts...),
	}
}

func (c *Collection[T, P]) Create(ctx context.Context, doc T) (*T, error) {
	resp, err := c.create.CallUnary(ctx, connect.NewRequest(&doc))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Collection[T, P]) Get(ctx context.Context, id string) (*T, error) {
	resp, err := c.get.CallUnary(ctx, connect.NewRequest(&api.KeyRequest{ID: id}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Collection[T, P]) List(ctx context.Context) ([]T, error) {
	resp, err := c.list.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Items, nil
}

func (c *Collection[T, P]) Update(ctx context.Context, id string, patch P) (*T, error) {
	resp, err := c.update.CallUnary(ctx, connect.NewRequest(&api.UpdateRequest[P]{ID: id, Patch: patch}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Collection[T, P]) Delete(ctx context.Context, id string) error {
	_, err := c.remove.CallUnary(ctx, connect.NewRequest(&api.KeyRequest{ID: id}))
	return err
}

type Client struct {
	Services         *Collection[entity.Service, entity.ServicePatch]
	Microservices    *Collection[entity.Microservice, entity.MicroservicePatch]
	Functions        *Collection[entity.Function, entity.FunctionPatch]
	Endpoints        *Collection[entity.Endpoint, entity.EndpointPatch]
	Roles            *Collection[entity.Role, entity.RolePatch]
	SecurityPolicies *Collection[entity.SecurityPolicy, entity.SecurityPolicyPatch]
	ActiveObjects    *Collection[entity.ActiveObject, entity.ActiveObjectPatch]
	FunctionStates   *Collection[entity.FunctionState, entity.StatePatch]
	FunctionResults  *Collection[entity.FunctionResult, entity.FunctionResultPatch]
	EndpointStates   *Collection[entity.EndpointState, entity.StatePatch]

	summon          *connect.Client[entity.Endpoint, entity.Endpoint]
	getSchema       *connect.Client[api.KeyRequest, entity.Schema]
	extractSchema   *connect.Client[api.ExtractSchemaRequest, api.ExtractSchemaResponse]
	hierarchy       *connect.Client[emptypb.Empty, api.HierarchyResponse]
	statesOf        *connect.Client[api.OwnerRequest, api.ListResponse[entity.FunctionState]]
	resultsOf       *connect.Client[api.OwnerRequest, api.ListResponse[entity.FunctionResult]]
	endpointStateOf *connect.Client[api.OwnerRequest, api.ListResponse[entity.EndpointState]]
}

// New builds a client for the gateway at baseURL. A nil httpClient means
// http.DefaultClient.
func New(baseURL string, httpClient connect.HTTPClient, opts ...connect.ClientOption) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{api.Option()}, opts...)
	url := func(service, method string) string { return baseURL + api.Procedure(service, method) }

	return &Client{
		Services:         newCollection[entity.Service, entity.ServicePatch](httpClient, baseURL, api.ServiceService, opts),
		Microservices:    newCollection[entity.Microservice, entity.MicroservicePatch](httpClient, baseURL, api.MicroserviceService, opts),
		Functions:        newCollection[entity.Function, entity.FunctionPatch](httpClient, baseURL, api.FunctionService, opts),
		Endpoints:        newCollection[entity.Endpoint, entity.EndpointPatch](httpClient, baseURL, api.EndpointService, opts),
		Roles:            newCollection[entity.Role, entity.RolePatch](httpClient, baseURL, api.RoleService, opts),
		SecurityPolicies: newCollection[entity.SecurityPolicy, entity.SecurityPolicyPatch](httpClient, baseURL, api.SecurityPolicyService, opts),
		ActiveObjects:    newCollection[entity.ActiveObject, entity.ActiveObjectPatch](httpClient, baseURL, api.ActiveObjectService, opts),
		FunctionStates:   newCollection[entity.FunctionState, entity.StatePatch](httpClient, baseURL, api.FunctionStateService, opts),
		FunctionResults:  newCollection[entity.FunctionResult, entity.FunctionResultPatch](httpClient, baseURL, api.FunctionResultService, opts),
		EndpointStates:   newCollection[entity.EndpointState, entity.StatePatch](httpClient, baseURL, api.EndpointStateService, opts),

		summon: connect.NewClient[entity.Endpoint, entity.Endpoint](httpClient,
			url(api.EndpointService, api.MethodSummon), opts...),
		getSchema: connect.NewClient[api.KeyRequest, entity.Schema](httpClient,
			url(api.ActiveObjectService, api.MethodGetSchema), opts...),
		extractSchema: connect.NewClient[api.ExtractSchemaRequest, api.ExtractSchemaResponse](httpClient,
			url(api.ActiveObjectService, api.MethodExtractSchema), opts...),
		hierarchy: connect.NewClient[emptypb.Empty, api.HierarchyResponse](httpClient,
			url(api.HierarchyService, api.MethodGetHierarchy), opts...),
		statesOf: connect.NewClient[api.OwnerRequest, api.ListResponse[entity.FunctionState]](httpClient,
			url(api.FunctionStateService, api.MethodListByFunction), opts...),
		resultsOf: connect.NewClient[api.OwnerRequest, api.ListResponse[entity.FunctionResult]](httpClient,
			url(api.FunctionResultService, api.MethodListByFunction), opts...),
		endpointStateOf: connect.NewClient[api.OwnerRequest, api.ListResponse[entity.EndpointState]](httpClient,
			url(api.EndpointStateService, api.MethodListByEndpoint), opts...),
	}
}

func (c *Client) SummonEndpoint(ctx context.Context, e entity.Endpoint) (*entity.Endpoint, error) {
	resp, err := c.summon.CallUnary(ctx, connect.NewRequest(&e))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) GetSchema(ctx context.Context, activeObjectID string) (*entity.Schema, error) {
	resp, err := c.getSchema.CallUnary(ctx, connect.NewRequest(&api.KeyRequest{ID: activeObjectID}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) ExtractSchema(ctx context.Context, code string) (*api.ExtractSchemaResponse, error) {
	resp, err := c.extractSchema.CallUnary(ctx, connect.NewRequest(&api.ExtractSchemaRequest{Code: code}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) Hierarchy(ctx context.Context) (*api.HierarchyResponse, error) {
	resp, err := c.hierarchy.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) FunctionStatesOf(ctx context.Context, functionID string) ([]entity.FunctionState, error) {
	resp, err := c.statesOf.CallUnary(ctx, connect.NewRequest(&api.OwnerRequest{OwnerID: functionID}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Items, nil
}

func (c *Client) FunctionResultsOf(ctx context.Context, functionID string) ([]entity.FunctionResult, error) {
	resp, err := c.resultsOf.CallUnary(ctx, connect.NewRequest(&api.OwnerRequest{OwnerID: functionID}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Items, nil
}

func (c *Client) EndpointStatesOf(ctx context.Context, endpointID string) ([]entity.EndpointState, error) {
	resp, err := c.endpointStateOf.CallUnary(ctx, connect.NewRequest(&api.OwnerRequest{OwnerID: endpointID}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Items, nil
}
