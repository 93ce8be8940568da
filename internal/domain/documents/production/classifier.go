package production

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/catalogs/group"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/documents"
)

// Classifier decides the type of a production line that was submitted without one.
// It returns an empty type when it cannot decide.
type Classifier interface {
	Classify(ctx context.Context, itemID id.ID) (LineType, error)
}

// ItemReader loads items.
type ItemReader interface {
	GetByID(ctx context.Context, itemID id.ID) (*item.Item, error)
}

// GroupReader loads groups.
type GroupReader interface {
	GetByID(ctx context.Context, groupID id.ID) (*group.Group, error)
}

// GroupRoles classifies by the group of the line item, configured by group id.
type GroupRoles struct {
	Items ItemReader
	Roles map[id.ID]LineType
}

// NewGroupRoles maps the given groups to produced and consumed.
func NewGroupRoles(items ItemReader, produced, consumed []id.ID) *GroupRoles {
	roles := make(map[id.ID]LineType, len(produced)+len(consumed))
	for _, g := range consumed {
		roles[g] = LineConsumed
	}
	for _, g := range produced {
		roles[g] = LineProduced
	}
	return &GroupRoles{Items: items, Roles: roles}
}

func (g *GroupRoles) Classify(ctx context.Context, itemID id.ID) (LineType, error) {
	it, err := g.Items.GetByID(ctx, itemID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return g.Roles[it.GroupID], nil
}

// ExpressionClassifier evaluates a boolean CEL expression over the item and
// its group; true means produced. Variables: item.code, item.name,
// group.code, group.name.
type ExpressionClassifier struct {
	Items  ItemReader
	Groups GroupReader

	source  string
	program cel.Program
}

// NewExpressionClassifier compiles expr once.
func NewExpressionClassifier(expr string, items ItemReader, groups GroupReader) (*ExpressionClassifier, error) {
	env, err := cel.NewEnv(
		cel.Variable("item", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("group", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile classifier %q: %w", expr, iss.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("classifier %q must be boolean, got %s", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program classifier: %w", err)
	}
	return &ExpressionClassifier{Items: items, Groups: groups, source: expr, program: prg}, nil
}

// String returns the expression source.
func (e *ExpressionClassifier) String() string { return e.source }

func (e *ExpressionClassifier) Classify(ctx context.Context, itemID id.ID) (LineType, error) {
	it, err := e.Items.GetByID(ctx, itemID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}

	grp := map[string]string{"code": "", "name": ""}
	if g, err := e.Groups.GetByID(ctx, it.GroupID); err == nil {
		grp["code"], grp["name"] = g.Code, g.Name
	} else if !apperror.IsNotFound(err) {
		return "", err
	}

	out, _, err := e.program.ContextEval(ctx, map[string]any{
		"item":  map[string]string{"code": it.Code, "name": it.Name},
		"group": grp,
	})
	if err != nil {
		return "", fmt.Errorf("evaluate classifier: %w", err)
	}
	produced, ok := out.Value().(bool)
	if !ok {
		return "", nil
	}
	if produced {
		return LineProduced, nil
	}
	return LineConsumed, nil
}

// Classify is the rule that types production lines: an explicit line type
// wins; otherwise the classifier decides, and a line it cannot decide is a
// field error on lines[i].type.
type Classify struct {
	Classifier Classifier
}

func (c Classify) Check(ctx context.Context, ch documents.Change[*Production]) error {
	if ch.Op == documents.OpDelete {
		return nil
	}

	var fe apperror.FieldErrors
	for i := range ch.Doc.Lines {
		line := &ch.Doc.Lines[i]
		if line.Type != "" || id.IsNil(line.ItemID) {
			continue
		}
		if c.Classifier != nil {
			t, err := c.Classifier.Classify(ctx, line.ItemID)
			if err != nil {
				return fmt.Errorf("classify line %d: %w", i+1, err)
			}
			line.Type = t
		}
		if line.Type == "" {
			fe.Add(documents.LinePath(i, "type"), apperror.CodeRequired,
				"type is required: the item cannot be classified as produced or consumed")
		}
	}
	return fe.Err()
}

func (Classify) Apply(context.Context, documents.Change[*Production]) error { return nil }
