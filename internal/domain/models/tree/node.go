package tree

import (
	"time"
)

// NodeType classifies a node. Only groups may have children.
type NodeType string

const (
	NodeTypeGroup        NodeType = "group"
	NodeTypeContent      NodeType = "content"
	NodeTypeBonusContent NodeType = "bonus_content"
)

// NodeTypes lists every valid node type.
var NodeTypes = []NodeType{NodeTypeGroup, NodeTypeContent, NodeTypeBonusContent}

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeGroup, NodeTypeContent, NodeTypeBonusContent:
		return true
	}
	return false
}

// CanHaveChildren reports whether nodes of this type may be a parent.
func (t NodeType) CanHaveChildren() bool {
	return t == NodeTypeGroup
}

// CarriesMedia reports whether nodes of this type may reference a media kind.
func (t NodeType) CarriesMedia() bool {
	return t == NodeTypeContent || t == NodeTypeBonusContent
}

type Node struct {
	ID          string    `json:"id" db:"id"`
	TenantID    string    `json:"tenant_id" db:"tenant_id"`
	ParentID    *string   `json:"parent_id" db:"parent_id"` // NULL = project root
	NodeType    NodeType  `json:"node_type" db:"node_type"`
	Title       string    `json:"title" db:"title"`
	Synopsis    *string   `json:"synopsis,omitempty" db:"synopsis"`
	Slug        *string   `json:"slug,omitempty" db:"slug"` // roots only
	Position    int64     `json:"position" db:"position"`
	MediaKindID *string   `json:"media_kind_id,omitempty" db:"media_kind_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// IsRoot reports whether the node is a project root.
func (n *Node) IsRoot() bool {
	return n.ParentID == nil
}

// NodeUpdate lists the mutable descriptive fields of a node.
// A nil pointer leaves the field alone; the Clear flags set it to NULL.
type NodeUpdate struct {
	Title         *string
	Synopsis      *string
	ClearSynopsis bool
	Slug          *string
	ClearSlug     bool
	MediaKindID   *string
	ClearMedia    bool
}

// Apply writes the update onto n. Stores share it so both agree on semantics.
func (u *NodeUpdate) Apply(n *Node) {
	if u.Title != nil {
		n.Title = *u.Title
	}
	switch {
	case u.ClearSynopsis:
		n.Synopsis = nil
	case u.Synopsis != nil:
		n.Synopsis = u.Synopsis
	}
	switch {
	case u.ClearSlug:
		n.Slug = nil
	case u.Slug != nil:
		n.Slug = u.Slug
	}
	switch {
	case u.ClearMedia:
		n.MediaKindID = nil
	case u.MediaKindID != nil:
		n.MediaKindID = u.MediaKindID
	}
}

// ReorderItem assigns a position to one sibling.
type ReorderItem struct {
	NodeID   string `json:"node_id"`
	Position int64  `json:"position"`
}
