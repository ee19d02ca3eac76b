// Package discovery implements the Discovery Engine: a cooperative ticker
// that polls the bus for topics/services, debounces flapping, and resolves
// newly-seen types through the Schema Registry via a ticker/select loop.
package discovery

// ServiceBinding is one entry of the compiled-in service allow-list.
// A file-based alternative is left as a future extension point, not
// required now.
type ServiceBinding struct {
	RequestType  string
	ResponseType string
}

// AllowList binds service names to the TypeNames the bus's untyped RPC
// primitive cannot itself report.
type AllowList map[string]ServiceBinding

// TopicFound is delivered to OnTopicFound for each newly-discovered,
// publisher-backed topic whose type resolved.
type TopicFound struct {
	Topic    string
	TypeName string
}

// ServiceFound is delivered to OnServiceFound for each newly-discovered,
// allow-listed service.
type ServiceFound struct {
	Name             string
	RequestTypeName  string
	ResponseTypeName string
	RequestSchema    map[string]any
	ResponseSchema   map[string]any
}
