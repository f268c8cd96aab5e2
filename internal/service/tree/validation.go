package tree

import (
	"errors"
	"fmt"
	"regexp"

	"arbor/internal/config"
	"arbor/internal/domain"
	models "arbor/internal/domain/models/tree"
	treeSvc "arbor/internal/domain/services/tree"
	"arbor/internal/httputil"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var validNodeTypes = func() []interface{} {
	types := make([]interface{}, len(models.NodeTypes))
	for i, t := range models.NodeTypes {
		types[i] = t
	}
	return types
}()

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}

func idRules() []validation.Rule {
	return []validation.Rule{validation.Required, validation.Length(1, config.MaxIDLength)}
}

func titleRules() []validation.Rule {
	return []validation.Rule{validation.Required, validation.Length(1, config.MaxTitleLength)}
}

func slugRules() []validation.Rule {
	return []validation.Rule{validation.Length(1, config.MaxSlugLength), validation.Match(slugPattern)}
}

// optional applies rules to the value of a present, non-null OptionalString.
func optional(rules ...validation.Rule) validation.Rule {
	return validation.By(func(value interface{}) error {
		opt, _ := value.(httputil.OptionalString)
		if opt.Value == nil {
			return nil
		}
		return validation.Validate(*opt.Value, rules...)
	})
}

func validateCreateNode(req *treeSvc.CreateNodeRequest) error {
	return invalid(validation.ValidateStruct(req,
		validation.Field(&req.TenantID, idRules()...),
		validation.Field(&req.ParentID, validation.NilOrNotEmpty, validation.Length(1, config.MaxIDLength)),
		validation.Field(&req.NodeType, validation.Required, validation.In(validNodeTypes...)),
		validation.Field(&req.Title, titleRules()...),
		validation.Field(&req.Synopsis, validation.Length(0, config.MaxSynopsisLength)),
		validation.Field(&req.Slug,
			validation.When(req.ParentID != nil, validation.Nil.Error("only project roots may have a slug")),
			validation.NilOrNotEmpty,
			validation.By(func(interface{}) error {
				if req.Slug == nil {
					return nil
				}
				return validation.Validate(*req.Slug, slugRules()...)
			}),
		),
		validation.Field(&req.MediaKindID,
			validation.When(!req.NodeType.CarriesMedia(), validation.Nil.Error("only content nodes carry a media kind")),
			validation.NilOrNotEmpty,
			validation.Length(1, config.MaxIDLength),
		),
		validation.Field(&req.Position, validation.Min(int64(0)), validation.Max(config.MaxPosition)),
	))
}

func validateUpdateNode(req *treeSvc.UpdateNodeRequest) error {
	return invalid(validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.Length(1, config.MaxTitleLength)),
		validation.Field(&req.Synopsis, optional(validation.Length(0, config.MaxSynopsisLength))),
		validation.Field(&req.Slug, optional(append([]validation.Rule{validation.Required}, slugRules()...)...)),
		validation.Field(&req.MediaKindID, optional(validation.Required, validation.Length(1, config.MaxIDLength))),
	))
}

func validateMoveNode(req *treeSvc.MoveNodeRequest) error {
	return invalid(validation.ValidateStruct(req,
		validation.Field(&req.TenantID, idRules()...),
		validation.Field(&req.NodeID, idRules()...),
		validation.Field(&req.ParentID,
			validation.By(func(interface{}) error {
				if !req.ParentID.Present {
					return errors.New("must be provided; use null to move to the top level")
				}
				return nil
			}),
			optional(idRules()...),
		),
		validation.Field(&req.Position, validation.Min(int64(0)), validation.Max(config.MaxPosition)),
	))
}

func validateReorder(req *treeSvc.ReorderSiblingsRequest) error {
	return invalid(validation.ValidateStruct(req,
		validation.Field(&req.TenantID, idRules()...),
		validation.Field(&req.ParentID, validation.NilOrNotEmpty),
		validation.Field(&req.Items,
			validation.Required,
			validation.Length(1, config.MaxReorderBatch),
			validation.By(uniqueReorderIDs),
			validation.Each(validation.By(func(value interface{}) error {
				item, _ := value.(models.ReorderItem)
				return validation.ValidateStruct(&item,
					validation.Field(&item.NodeID, idRules()...),
					validation.Field(&item.Position, validation.Min(int64(0)), validation.Max(config.MaxPosition)),
				)
			})),
		),
	))
}

func uniqueReorderIDs(value interface{}) error {
	items, _ := value.([]models.ReorderItem)
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if seen[item.NodeID] {
			return fmt.Errorf("node %s listed more than once", item.NodeID)
		}
		seen[item.NodeID] = true
	}
	return nil
}

func validateCreateProject(req *treeSvc.CreateProjectRequest) error {
	return invalid(validation.ValidateStruct(req,
		validation.Field(&req.TenantID, idRules()...),
		validation.Field(&req.Title, titleRules()...),
		validation.Field(&req.Synopsis, validation.Length(0, config.MaxSynopsisLength)),
		validation.Field(&req.Slug,
			validation.NilOrNotEmpty,
			validation.By(func(interface{}) error {
				if req.Slug == nil {
					return nil
				}
				return validation.Validate(*req.Slug, slugRules()...)
			}),
		),
		validation.Field(&req.Position, validation.Min(int64(0)), validation.Max(config.MaxPosition)),
	))
}

func validateIDs(ids ...string) error {
	for _, id := range ids {
		if err := validation.Validate(id, idRules()...); err != nil {
			return invalid(err)
		}
	}
	return nil
}
