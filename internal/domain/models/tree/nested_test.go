package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(id string, parentID *string, depth int) SubtreeNode {
	return SubtreeNode{Node: Node{ID: id, ParentID: parentID, Title: id}, Depth: depth}
}

func TestBuildNested(t *testing.T) {
	root, season, other := "root", "season", "other-tenant-parent"
	flat := []SubtreeNode{
		row(root, nil, 0),
		row(season, &root, 1),
		row("trailer", &root, 1),
		row("ep1", &season, 2),
		row("ep2", &season, 2),
		row("orphan", &other, 2),
	}

	tree := BuildNested(flat)
	require.NotNil(t, tree)
	assert.Equal(t, root, tree.ID)
	require.Len(t, tree.Children, 2)
	assert.Equal(t, season, tree.Children[0].ID)
	assert.Equal(t, "trailer", tree.Children[1].ID)
	assert.NotNil(t, tree.Children[1].Children, "leaves serialise as []")
	require.Len(t, tree.Children[0].Children, 2)
	assert.Equal(t, "ep2", tree.Children[0].Children[1].ID)
}

func TestBuildNested_SubtreeRootWithParent(t *testing.T) {
	parent := "above"
	tree := BuildNested([]SubtreeNode{row("mid", &parent, 0)})
	require.NotNil(t, tree)
	assert.Equal(t, "mid", tree.ID)
	assert.Empty(t, tree.Children)
}

func TestBuildNested_Empty(t *testing.T) {
	assert.Nil(t, BuildNested(nil))
}

func TestNodeTypeRules(t *testing.T) {
	assert.True(t, NodeTypeGroup.CanHaveChildren())
	assert.False(t, NodeTypeContent.CanHaveChildren())
	assert.False(t, NodeTypeGroup.CarriesMedia())
	assert.True(t, NodeTypeBonusContent.CarriesMedia())
	assert.False(t, NodeType("folder").Valid())
}
