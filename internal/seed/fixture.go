// Package seed loads YAML tree fixtures and creates them through the tree
// engine, so seeded data obeys the same invariants as API writes.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"

	models "arbor/internal/domain/models/tree"
	treeSvc "arbor/internal/domain/services/tree"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultFixture []byte

// Fixture is a forest of projects to create for one tenant.
type Fixture struct {
	Projects []ProjectFixture `yaml:"projects"`
}

// ProjectFixture describes a project root and its subtree.
type ProjectFixture struct {
	Title    string        `yaml:"title"`
	Slug     *string       `yaml:"slug"`
	Synopsis *string       `yaml:"synopsis"`
	Children []NodeFixture `yaml:"children"`
}

// NodeFixture describes a node below a project. Children are only allowed on groups.
type NodeFixture struct {
	Type        models.NodeType `yaml:"type"`
	Title       string          `yaml:"title"`
	Synopsis    *string         `yaml:"synopsis"`
	MediaKindID *string         `yaml:"media_kind_id"`
	Children    []NodeFixture   `yaml:"children"`
}

// Result counts what Seed created.
type Result struct {
	Projects int
	Nodes    int
}

// Parse decodes a fixture, rejecting unknown keys.
func Parse(r io.Reader) (*Fixture, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var f Fixture
	if err := decoder.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("fixture is empty")
		}
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if len(f.Projects) == 0 {
		return nil, errors.New("fixture has no projects")
	}
	return &f, nil
}

// Default returns the embedded demo fixture.
func Default() (*Fixture, error) {
	return Parse(bytes.NewReader(defaultFixture))
}

// Seed creates every project in f for tenantID, depth first. It stops at the
// first failure; projects created before it are left in place.
func Seed(ctx context.Context, projects treeSvc.ProjectService, tree treeSvc.TreeService, tenantID string, f *Fixture, logger *slog.Logger) (Result, error) {
	var res Result
	for _, p := range f.Projects {
		project, err := projects.CreateProject(ctx, &treeSvc.CreateProjectRequest{
			TenantID: tenantID,
			Title:    p.Title,
			Slug:     p.Slug,
			Synopsis: p.Synopsis,
		})
		if err != nil {
			return res, fmt.Errorf("create project %q: %w", p.Title, err)
		}
		res.Projects++
		res.Nodes++

		created, err := seedChildren(ctx, tree, tenantID, project.ID, p.Children)
		res.Nodes += created
		if err != nil {
			return res, fmt.Errorf("seed project %q: %w", p.Title, err)
		}

		logger.Info("project seeded", "project_id", project.ID, "title", project.Title, "nodes", created+1)
	}
	return res, nil
}

func seedChildren(ctx context.Context, tree treeSvc.TreeService, tenantID, parentID string, children []NodeFixture) (int, error) {
	created := 0
	for _, c := range children {
		node, err := tree.CreateNode(ctx, &treeSvc.CreateNodeRequest{
			TenantID:    tenantID,
			ParentID:    &parentID,
			NodeType:    c.Type,
			Title:       c.Title,
			Synopsis:    c.Synopsis,
			MediaKindID: c.MediaKindID,
		})
		if err != nil {
			return created, fmt.Errorf("create %q: %w", c.Title, err)
		}
		created++

		n, err := seedChildren(ctx, tree, tenantID, node.ID, c.Children)
		created += n
		if err != nil {
			return created, err
		}
	}
	return created, nil
}
