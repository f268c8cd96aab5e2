package handler

import (
	"log/slog"
	"net/http"

	treeSvc "arbor/internal/domain/services/tree"
	"arbor/internal/httputil"
)

// NodeHandler handles node HTTP requests
type NodeHandler struct {
	treeService treeSvc.TreeService
	logger      *slog.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(treeService treeSvc.TreeService, logger *slog.Logger) *NodeHandler {
	return &NodeHandler{
		treeService: treeService,
		logger:      logger,
	}
}

// CreateNode creates a node under a group, or a root when parent_id is null
// POST /api/nodes
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req treeSvc.CreateNodeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	req.TenantID = tenantID

	node, err := h.treeService.CreateNode(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, node)
}

// GetNode retrieves a single node
// GET /api/nodes/{id}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	nodeID, ok := PathParam(w, r, "id", "Node ID")
	if !ok {
		return
	}

	node, err := h.treeService.GetNode(r.Context(), tenantID, nodeID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, node)
}

// UpdateNode updates descriptive fields. Absent fields are left alone, null clears.
// PATCH /api/nodes/{id}
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	nodeID, ok := PathParam(w, r, "id", "Node ID")
	if !ok {
		return
	}

	var req treeSvc.UpdateNodeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	node, err := h.treeService.UpdateNode(r.Context(), tenantID, nodeID, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, node)
}

// DeleteNode deletes a node and its subtree
// DELETE /api/nodes/{id}
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	nodeID, ok := PathParam(w, r, "id", "Node ID")
	if !ok {
		return
	}

	deleted, err := h.treeService.DeleteNode(r.Context(), tenantID, nodeID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, deleteResponse{Deleted: deleted})
}

// MoveNode re-parents a node. The body must carry parent_id; null promotes
// the node to a project root.
// POST /api/nodes/{id}/move
func (h *NodeHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	nodeID, ok := PathParam(w, r, "id", "Node ID")
	if !ok {
		return
	}

	var req treeSvc.MoveNodeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	req.TenantID = tenantID
	req.NodeID = nodeID

	node, err := h.treeService.MoveNode(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, node)
}

// ReorderChildren assigns positions to children of a node
// PUT /api/nodes/{id}/children/order
func (h *NodeHandler) ReorderChildren(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	parentID, ok := PathParam(w, r, "id", "Node ID")
	if !ok {
		return
	}

	var body reorderRequest
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	err := h.treeService.ReorderSiblings(r.Context(), &treeSvc.ReorderSiblingsRequest{
		TenantID: tenantID,
		ParentID: &parentID,
		Items:    body.Items,
	})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RenumberChildren compacts child positions to 0..n-1
// POST /api/nodes/{id}/children/renumber
func (h *NodeHandler) RenumberChildren(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	parentID, ok := PathParam(w, r, "id", "Node ID")
	if !ok {
		return
	}

	children, err := h.treeService.RenumberSiblings(r.Context(), tenantID, &parentID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, children)
}

// GetSubtree returns the subtree under a node, flat by default
// GET /api/nodes/{id}/subtree?nested=true
func (h *NodeHandler) GetSubtree(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	nodeID, ok := PathParam(w, r, "id", "Node ID")
	if !ok {
		return
	}

	respondSubtree(w, r, h.logger, h.treeService, tenantID, nodeID)
}

// respondSubtree writes the flat or nested subtree of nodeID.
func respondSubtree(w http.ResponseWriter, r *http.Request, logger *slog.Logger, tree treeSvc.TreeService, tenantID, nodeID string) {
	nested, err := boolQuery(r, "nested")
	if err != nil {
		badRequest(w, "nested must be a boolean")
		return
	}

	if nested {
		root, err := tree.GetSubtreeNested(r.Context(), tenantID, nodeID)
		if err != nil {
			handleError(w, logger, err)
			return
		}
		httputil.RespondJSON(w, http.StatusOK, root)
		return
	}

	rows, err := tree.GetSubtreeFlat(r.Context(), tenantID, nodeID)
	if err != nil {
		handleError(w, logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, rows)
}
