package auth

import (
	"maps"
	"slices"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// providers lists well-known endpoints that support the implicit grant.
var providers = map[string]oauth2.Endpoint{
	"facebook":  endpoints.Facebook,
	"google":    endpoints.Google,
	"microsoft": endpoints.AzureAD("common"),
}

// ProviderEndpoint returns the endpoint of a well-known provider by name, case-insensitively.
func ProviderEndpoint(name string) (oauth2.Endpoint, bool) {
	endpoint, ok := providers[strings.ToLower(strings.TrimSpace(name))]
	return endpoint, ok
}

// ProviderNames returns the names accepted by ProviderEndpoint, sorted.
func ProviderNames() []string {
	return slices.Sorted(maps.Keys(providers))
}
