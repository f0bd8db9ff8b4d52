// Package api is the wire contract shared by the gateway handlers and the
// mirror client.
package api

const packagePrefix = "/meshmeta.v1."

const (
	ServiceService        = "ServiceService"
	MicroserviceService   = "MicroserviceService"
	FunctionService       = "FunctionService"
	EndpointService       = "EndpointService"
	RoleService           = "RoleService"
	SecurityPolicyService = "SecurityPolicyService"
	ActiveObjectService   = "ActiveObjectService"
	FunctionStateService  = "FunctionStateService"
	FunctionResultService = "FunctionResultService"
	EndpointStateService  = "EndpointStateService"
	HierarchyService      = "HierarchyService"
)

const (
	MethodCreate         = "Create"
	MethodGet            = "Get"
	MethodList           = "List"
	MethodUpdate         = "Update"
	MethodDelete         = "Delete"
	MethodGetSchema      = "GetSchema"
	MethodExtractSchema  = "ExtractSchema"
	MethodGetHierarchy   = "GetHierarchy"
	MethodSummon         = "Summon"
	MethodListByFunction = "ListByFunction"
	MethodListByEndpoint = "ListByEndpoint"
)

// Procedure returns the connect procedure path, e.g.
// /meshmeta.v1.ServiceService/Create.
func Procedure(service, method string) string {
	return packagePrefix + service + "/" + method
}

// ServicePath is the mux pattern covering every method of a service.
func ServicePath(service string) string {
	return packagePrefix + service + "/"
}
