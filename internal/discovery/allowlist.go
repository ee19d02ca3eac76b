package discovery

// DefaultAllowList is the compiled-in service allow-list: the bus's RPC
// primitive doesn't expose request/response type metadata, so the binding
// has to come from configuration. Extending it requires a rebuild.
//
// These bindings name a localization reset RPC and a parameter get/set
// pair, the two shapes every bridged robotics stack tends to expose.
var DefaultAllowList = AllowList{
	"/localization/reset": {
		RequestType:  "cyber.bridge.ResetLocalizationRequest",
		ResponseType: "cyber.bridge.ResetLocalizationResponse",
	},
	"/parameter/get_parameters": {
		RequestType:  "cyber.bridge.GetParametersRequest",
		ResponseType: "cyber.bridge.GetParametersResponse",
	},
	"/parameter/set_parameters": {
		RequestType:  "cyber.bridge.SetParametersRequest",
		ResponseType: "cyber.bridge.SetParametersResponse",
	},
}
