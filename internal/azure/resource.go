package azure

import (
	"fmt"
	"strings"
)

// Resource is a parsed Azure resource ID of the form
// /subscriptions/{sub}/resourceGroups/{rg}/providers/{namespace}/{type}/{name}[/...]
type Resource struct {
	SubscriptionID string
	ResourceGroup  string
	Namespace      string
	Type           string
	Name           string
}

// FullType returns namespace/type, e.g. Microsoft.Compute/virtualMachines
func (r Resource) FullType() string {
	return r.Namespace + "/" + r.Type
}

// Path returns the canonical resource path without child segments
func (r Resource) Path() string {
	return fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/%s/%s/%s",
		r.SubscriptionID, r.ResourceGroup, r.Namespace, r.Type, r.Name)
}

// ParseResourceID parses an Azure resource ID. Segment keywords are matched
// case-insensitively since cost exports often lower-case the whole ID.
func ParseResourceID(id string) (Resource, bool) {
	parts := strings.Split(strings.Trim(strings.TrimSpace(id), "/"), "/")
	if len(parts) < 8 {
		return Resource{}, false
	}
	if !strings.EqualFold(parts[0], "subscriptions") ||
		!strings.EqualFold(parts[2], "resourceGroups") ||
		!strings.EqualFold(parts[4], "providers") {
		return Resource{}, false
	}
	for _, p := range parts[:8] {
		if p == "" {
			return Resource{}, false
		}
	}

	return Resource{
		SubscriptionID: parts[1],
		ResourceGroup:  parts[3],
		Namespace:      parts[5],
		Type:           parts[6],
		Name:           parts[7],
	}, true
}

// DisplayName returns "name (type)" for parsable IDs and the last path segment otherwise
func DisplayName(id string) string {
	if r, ok := ParseResourceID(id); ok {
		return fmt.Sprintf("%s (%s)", r.Name, r.Type)
	}
	trimmed := strings.TrimRight(id, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// Cost categories
const (
	CategoryCompute    = "Compute"
	CategoryStorage    = "Storage"
	CategoryNetworking = "Networking"
	CategoryWebApps    = "Web Apps"
	CategoryDatabase   = "Database"
	CategoryAI         = "AI Services"
	CategorySecurity   = "Security"
	CategoryContainers = "Containers"
	CategoryOther      = "Other"
)

// categoryRules is evaluated in order against the provider namespace; the
// first substring match wins
var categoryRules = []struct {
	match    string
	category string
}{
	{"containerservice", CategoryContainers},
	{"containerregistry", CategoryContainers},
	{"containerinstance", CategoryContainers},
	{"compute", CategoryCompute},
	{"storage", CategoryStorage},
	{"network", CategoryNetworking},
	{"web", CategoryWebApps},
	{"sql", CategoryDatabase},
	{"documentdb", CategoryDatabase},
	{"cache", CategoryDatabase},
	{"cognitiveservices", CategoryAI},
	{"machinelearningservices", CategoryAI},
	{"keyvault", CategorySecurity},
}

// CategoryForType classifies a namespace/type string such as
// Microsoft.Compute/virtualMachines or microsoft.compute/disks. Only the
// namespace is matched, so Microsoft.Insights/webtests is not a web app.
func CategoryForType(fullType string) string {
	namespace, _, _ := strings.Cut(fullType, "/")
	namespace = strings.ToLower(strings.TrimSpace(namespace))
	if namespace == "" {
		return CategoryOther
	}
	for _, rule := range categoryRules {
		if strings.Contains(namespace, rule.match) {
			return rule.category
		}
	}
	return CategoryOther
}

// DefaultPortalHost is the public Azure cloud portal
const DefaultPortalHost = "portal.azure.com"

var cloudPortalHosts = map[string]string{
	"azurecloud":        DefaultPortalHost,
	"azurechinacloud":   "portal.azure.cn",
	"azureusgovernment": "portal.azure.us",
}

// PortalHostForCloud returns the portal host for an az CLI cloud name
func PortalHostForCloud(cloud string) string {
	if host, ok := cloudPortalHosts[strings.ToLower(strings.TrimSpace(cloud))]; ok {
		return host
	}
	return DefaultPortalHost
}

// PortalURL builds the portal deep link for a resource ID. It reports false
// when the ID cannot be parsed.
func PortalURL(host, id string) (string, bool) {
	r, ok := ParseResourceID(id)
	if !ok {
		return "", false
	}
	if host == "" {
		host = DefaultPortalHost
	}
	host = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://"), "/")
	return fmt.Sprintf("https://%s/#@/resource%s", host, r.Path()), true
}
