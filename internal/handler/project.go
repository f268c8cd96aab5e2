package handler

import (
	"log/slog"
	"net/http"

	treeSvc "arbor/internal/domain/services/tree"
	"arbor/internal/httputil"
)

// ProjectHandler handles project HTTP requests. Projects are root nodes.
type ProjectHandler struct {
	projectService treeSvc.ProjectService
	treeService    treeSvc.TreeService
	logger         *slog.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectService treeSvc.ProjectService, treeService treeSvc.TreeService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		treeService:    treeService,
		logger:         logger,
	}
}

// ListProjects lists the tenant's projects with descendant counts
// GET /api/projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	projects, err := h.projectService.ListProjects(r.Context(), tenantID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, projects)
}

// CreateProject creates a new project root
// POST /api/projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req treeSvc.CreateProjectRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	req.TenantID = tenantID

	project, err := h.projectService.CreateProject(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, project)
}

// GetProject retrieves a project by ID
// GET /api/projects/{id}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	project, err := h.projectService.GetProject(r.Context(), tenantID, projectID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, project)
}

// UpdateProject updates a project's descriptive fields
// PATCH /api/projects/{id}
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	var req treeSvc.UpdateNodeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	project, err := h.projectService.UpdateProject(r.Context(), tenantID, projectID, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, project)
}

// DeleteProject deletes a project and everything under it
// DELETE /api/projects/{id}
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	deleted, err := h.projectService.DeleteProject(r.Context(), tenantID, projectID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, deleteResponse{Deleted: deleted})
}

// GetTree returns the project's tree, flat by default
// GET /api/projects/{id}/tree?nested=true
func (h *ProjectHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	// Only roots are projects.
	if _, err := h.projectService.GetProject(r.Context(), tenantID, projectID); err != nil {
		handleError(w, h.logger, err)
		return
	}

	respondSubtree(w, r, h.logger, h.treeService, tenantID, projectID)
}

// ReorderProjects assigns positions to the tenant's project roots
// PUT /api/projects/order
func (h *ProjectHandler) ReorderProjects(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var body reorderRequest
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	if err := h.projectService.ReorderProjects(r.Context(), tenantID, body.Items); err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RenumberProjects compacts root positions to 0..n-1
// POST /api/projects/renumber
func (h *ProjectHandler) RenumberProjects(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	roots, err := h.treeService.RenumberSiblings(r.Context(), tenantID, nil)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, roots)
}
