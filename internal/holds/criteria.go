package holds

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/gravitas-games/sortsys/internal/item"
)

// Criteria decides whether an item satisfies an ItemMatch request.
type Criteria interface {
	Matches(it *item.Item) bool
}

// StackableHashCriteria matches items of exactly one stackable kind.
type StackableHashCriteria struct {
	StackableHash item.Hash `json:"stackable_hash"`
}

func (c StackableHashCriteria) Matches(it *item.Item) bool {
	return it != nil && it.StackableHash == c.StackableHash
}

// itemEnv is the environment expression criteria are evaluated against.
type itemEnv struct {
	ItemID        uint32 `expr:"item_id"`
	Count         uint32 `expr:"count"`
	StackSize     uint32 `expr:"stack_size"`
	StackableHash string `expr:"stackable_hash"`
	IsShulker     bool   `expr:"is_shulker"`
	ShulkerName   string `expr:"shulker_name"`
	ShulkerColor  string `expr:"shulker_color"`
	ShulkerEmpty  bool   `expr:"shulker_empty"`
}

func envFor(it *item.Item) itemEnv {
	env := itemEnv{
		ItemID:        it.ItemID,
		Count:         it.Count,
		StackSize:     it.StackSize,
		StackableHash: it.StackableHash.String(),
	}
	if sd := it.Shulker; sd != nil {
		env.IsShulker = true
		env.ShulkerEmpty = sd.Empty
		if sd.Name != nil {
			env.ShulkerName = *sd.Name
		}
		if sd.Color != nil {
			env.ShulkerColor = *sd.Color
		}
	}
	return env
}

// ExpressionCriteria matches items for which a boolean expr-lang expression
// holds, for example `item_id == 42 && count >= 16`.
type ExpressionCriteria struct {
	source  string
	program *vm.Program
}

// CompileExpression compiles src into a criteria. src must evaluate to a bool.
func CompileExpression(src string) (*ExpressionCriteria, error) {
	if src == "" {
		return nil, errors.New("holds: expression must not be empty")
	}
	program, err := expr.Compile(src, expr.Env(itemEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("holds: invalid expression %q: %w", src, err)
	}
	return &ExpressionCriteria{source: src, program: program}, nil
}

// Source returns the expression text.
func (c *ExpressionCriteria) Source() string {
	return c.source
}

func (c *ExpressionCriteria) Matches(it *item.Item) bool {
	if it == nil {
		return false
	}
	out, err := expr.Run(c.program, envFor(it))
	if err != nil {
		return false
	}
	matched, _ := out.(bool)
	return matched
}

// wireCriteria is the externally tagged JSON form:
//
//	{"StackableHash": {"stackable_hash": "123"}}
//	{"Expression": {"expression": "count >= 16"}}
type wireCriteria struct {
	StackableHash *StackableHashCriteria `json:"StackableHash,omitempty"`
	Expression    *wireExpression        `json:"Expression,omitempty"`
}

type wireExpression struct {
	Expression string `json:"expression"`
}

// DecodeCriteria parses the JSON form of a criteria.
func DecodeCriteria(data []byte) (Criteria, error) {
	var w wireCriteria
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("holds: invalid match criteria: %w", err)
	}
	switch {
	case w.StackableHash != nil && w.Expression == nil:
		return *w.StackableHash, nil
	case w.Expression != nil && w.StackableHash == nil:
		return CompileExpression(w.Expression.Expression)
	default:
		return nil, errors.New("holds: match criteria must name exactly one kind")
	}
}

// EncodeCriteria renders c in its JSON form.
func EncodeCriteria(c Criteria) ([]byte, error) {
	switch v := c.(type) {
	case StackableHashCriteria:
		return json.Marshal(wireCriteria{StackableHash: &v})
	case *ExpressionCriteria:
		return json.Marshal(wireCriteria{Expression: &wireExpression{Expression: v.source}})
	default:
		return nil, fmt.Errorf("holds: cannot encode criteria %T", c)
	}
}
