package api_test

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	specpkg "github.com/commissionhub/portal/api"
	"github.com/commissionhub/portal/internal/api"
	"github.com/commissionhub/portal/internal/apiclient"
	"github.com/commissionhub/portal/internal/notification"
	"github.com/commissionhub/portal/internal/session"
)

// openAPIDocument is the minimal structure needed to extract paths.
type openAPIDocument struct {
	Paths map[string]map[string]interface{} `json:"paths"`
}

// TestOpenAPISpec_RoutesCoverAllPaths checks the shell's own routes against
// the embedded document. Layouts, /metrics and /openapi.json are left out of
// the router so only documented endpoints remain.
func TestOpenAPISpec_RoutesCoverAllPaths(t *testing.T) {
	t.Parallel()

	docJSON, err := yaml.YAMLToJSON(specpkg.OpenAPISpec)
	require.NoError(t, err, "embedded document must convert to JSON")

	var doc openAPIDocument
	require.NoError(t, yaml.Unmarshal(docJSON, &doc))

	docRoutes := extractDocRoutes(t, doc)
	require.NotEmpty(t, docRoutes)

	router := api.NewRouter(api.RouterDeps{
		Sessions:      session.NewStore(noopFetcher{}),
		Notifications: notification.NewStore(noopNotifications{}),
		Version:       "test",
	})

	chiRoutes := extractChiRoutes(t, router)
	require.NotEmpty(t, chiRoutes)

	for _, dr := range docRoutes {
		t.Run(fmt.Sprintf("doc_%s_%s_has_Chi_route", dr.method, dr.path), func(t *testing.T) {
			assert.Contains(t, chiRoutes, dr, "documented route %s %s not found in Chi router", dr.method, dr.path)
		})
	}

	for _, cr := range chiRoutes {
		t.Run(fmt.Sprintf("Chi_%s_%s_is_documented", cr.method, cr.path), func(t *testing.T) {
			assert.Contains(t, docRoutes, cr, "Chi route %s %s not found in OpenAPI document", cr.method, cr.path)
		})
	}
}

type noopFetcher struct{}

func (noopFetcher) Me(_ context.Context) (*apiclient.Viewer, error) {
	return nil, apiclient.ErrUnauthenticated
}

type noopNotifications struct{}

func (noopNotifications) UnreadCount(_ context.Context) (int, error) { return 0, nil }
func (noopNotifications) MarkAllRead(_ context.Context) error         { return nil }

type route struct {
	method string
	path   string
}

func extractDocRoutes(t *testing.T, doc openAPIDocument) []route {
	t.Helper()
	var routes []route
	for path, methods := range doc.Paths {
		for method := range methods {
			routes = append(routes, route{method: strings.ToUpper(method), path: path})
		}
	}
	sortRoutes(routes)
	return routes
}

func extractChiRoutes(t *testing.T, r *chi.Mux) []route {
	t.Helper()
	var routes []route
	walkFunc := func(method, routePath string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		// Chi subroutes produce trailing slashes (/api/session/).
		normalized := strings.TrimRight(routePath, "/")
		if normalized == "" {
			normalized = "/"
		}
		routes = append(routes, route{method: method, path: normalized})
		return nil
	}
	require.NoError(t, chi.Walk(r, walkFunc))
	sortRoutes(routes)
	return routes
}

func sortRoutes(routes []route) {
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].path == routes[j].path {
			return routes[i].method < routes[j].method
		}
		return routes[i].path < routes[j].path
	})
}
