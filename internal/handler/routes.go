package handler

import "net/http"

// RegisterRoutes mounts the API on mux (Go 1.22+ method patterns).
func RegisterRoutes(mux *http.ServeMux, projects *ProjectHandler, nodes *NodeHandler, health *HealthHandler) {
	mux.HandleFunc("GET /health", health.HealthCheck)

	// Project routes
	mux.HandleFunc("GET /api/projects", projects.ListProjects)
	mux.HandleFunc("POST /api/projects", projects.CreateProject)
	mux.HandleFunc("PUT /api/projects/order", projects.ReorderProjects)
	mux.HandleFunc("POST /api/projects/renumber", projects.RenumberProjects)
	mux.HandleFunc("GET /api/projects/{id}", projects.GetProject)
	mux.HandleFunc("PATCH /api/projects/{id}", projects.UpdateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", projects.DeleteProject)
	mux.HandleFunc("GET /api/projects/{id}/tree", projects.GetTree)

	// Node routes
	mux.HandleFunc("POST /api/nodes", nodes.CreateNode)
	mux.HandleFunc("GET /api/nodes/{id}", nodes.GetNode)
	mux.HandleFunc("PATCH /api/nodes/{id}", nodes.UpdateNode)
	mux.HandleFunc("DELETE /api/nodes/{id}", nodes.DeleteNode)
	mux.HandleFunc("POST /api/nodes/{id}/move", nodes.MoveNode)
	mux.HandleFunc("GET /api/nodes/{id}/subtree", nodes.GetSubtree)
	mux.HandleFunc("PUT /api/nodes/{id}/children/order", nodes.ReorderChildren)
	mux.HandleFunc("POST /api/nodes/{id}/children/renumber", nodes.RenumberChildren)
}
