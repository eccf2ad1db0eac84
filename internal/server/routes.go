package server

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Jobs
	mux.HandleFunc("/api/jobs", s.app.JobHandler.JobsRoute)   // GET (list), POST (enqueue)
	mux.HandleFunc("/api/jobs/", s.app.JobHandler.JobRoutes) // GET/DELETE /{id}, POST /{id}/retry, POST /recover

	// API routes - Websites and keywords
	mux.HandleFunc("/api/websites", s.app.WebsiteHandler.WebsitesRoute)
	mux.HandleFunc("/api/websites/", s.app.WebsiteHandler.WebsiteRoutes)

	// API routes - Posts
	mux.HandleFunc("/api/posts", s.app.PostHandler.PostsRoute)
	mux.HandleFunc("/api/posts/", s.app.PostHandler.PostRoutes) // GET /{id}, POST /{id}/publish, GET /{id}/score

	// API routes - Keyword clusters
	mux.HandleFunc("/api/clusters", s.app.ClusterHandler.SuggestHandler)

	// API routes - System
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)

	if s.app.Config.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}

	// Generated featured images, when served locally
	if prefix := imagePrefix(s.app.Config.Images.BaseURL); prefix != "" && s.app.Config.Images.Enabled {
		mux.Handle(prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(s.app.Config.Images.Dir))))
	}

	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// imagePrefix returns the mux pattern for a local image base URL, or "" when images
// are hosted elsewhere
func imagePrefix(baseURL string) string {
	if !strings.HasPrefix(baseURL, "/") || baseURL == "/" {
		return ""
	}
	return strings.TrimSuffix(baseURL, "/") + "/"
}

// routeLabel collapses ids out of a request path so metric label cardinality stays bounded
func routeLabel(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] != "api" {
		switch path {
		case "/ws", "/metrics":
			return path
		}
		return "other"
	}
	// /api/{resource}/{id}/{action}
	if len(parts) >= 3 && !(parts[1] == "jobs" && parts[2] == "recover") {
		parts[2] = "{id}"
	}
	if len(parts) > 4 {
		parts = parts[:4]
	}
	return "/" + strings.Join(parts, "/")
}
