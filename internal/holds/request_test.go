package holds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitas-games/sortsys/internal/item"
	"github.com/gravitas-games/sortsys/pkg/models"
)

func TestDecodeRequestVariants(t *testing.T) {
	r, err := DecodeRequest([]byte(` "EmptySlot" `))
	require.NoError(t, err)
	assert.Equal(t, EmptySlot{}, r)

	r, err = DecodeRequest([]byte(`{"ItemMatch":{"match_criteria":{"StackableHash":{"stackable_hash":"12345"}},"total":45}}`))
	require.NoError(t, err)
	im, ok := r.(ItemMatch)
	require.True(t, ok)
	assert.EqualValues(t, 45, im.Total)
	assert.Equal(t, StackableHashCriteria{StackableHash: 12345}, im.Criteria)

	r, err = DecodeRequest([]byte(`{"SlotLocation":{"location":{"vec3":{"x":1,"y":2,"z":3},"dim":"TheEnd"},"slot":7,"open_from":{"x":1,"y":3,"z":3}}}`))
	require.NoError(t, err)
	assert.Equal(t, SlotLocation{
		Location: models.Location{Vec3: models.Vec3{X: 1, Y: 2, Z: 3}, Dim: models.TheEnd},
		Slot:     7,
		OpenFrom: models.Vec3{X: 1, Y: 3, Z: 3},
	}, r)
}

func TestDecodeRequestRejectsMalformed(t *testing.T) {
	cases := []string{
		`"FullSlot"`,
		`{}`,
		`{"ItemMatch":{"total":3}}`,
		`{"ItemMatch":{"match_criteria":{},"total":3}}`,
		`{"ItemMatch":{"match_criteria":{"StackableHash":{"stackable_hash":"abc"}},"total":3}}`,
		`{"ItemMatch":{"match_criteria":{"Expression":{"expression":"count +"}},"total":3}}`,
		`{"ItemMatch":{"match_criteria":{"Expression":{"expression":"count"}},"total":3}}`,
		`{"SlotLocation":{"location":{"vec3":{"x":1,"y":2,"z":3},"dim":"Mars"},"slot":1}}`,
		`[1,2]`,
	}
	for _, c := range cases {
		_, err := DecodeRequest([]byte(c))
		assert.Error(t, err, c)
	}
}

func TestEncodeRequestRoundTrip(t *testing.T) {
	expression, err := CompileExpression(`is_shulker && shulker_color == "blue"`)
	require.NoError(t, err)
	reqs := []Request{
		EmptySlot{},
		ItemMatch{Criteria: StackableHashCriteria{StackableHash: 99}, Total: 12},
		ItemMatch{Criteria: expression, Total: 1},
		SlotLocation{Location: loc(3), Slot: 2, OpenFrom: models.Vec3{Y: 1}},
	}
	for _, req := range reqs {
		data, err := EncodeRequest(req)
		require.NoError(t, err)
		back, err := DecodeRequest(data)
		require.NoError(t, err)
		again, err := EncodeRequest(back)
		require.NoError(t, err)
		assert.JSONEq(t, string(data), string(again))
	}
}

func TestExpressionCriteria(t *testing.T) {
	box := testDecoder.Decode(item.Raw{ItemID: boxID, Count: 1})

	cases := []struct {
		expr string
		it   *item.Item
		want bool
	}{
		{"count >= 16", stack(pearlID, 16), true},
		{"count >= 16", stack(pearlID, 15), false},
		{"stack_size == 16", stack(pearlID, 1), true},
		{`stackable_hash == "` + hashOf(diamondID).String() + `"`, stack(diamondID, 1), true},
		{"is_shulker && shulker_empty", &box, true},
		{`shulker_color == "blue"`, &box, true},
		{"is_shulker", stack(diamondID, 1), false},
		{"count > 0", nil, false},
	}
	for _, c := range cases {
		criteria, err := CompileExpression(c.expr)
		require.NoError(t, err, c.expr)
		assert.Equal(t, c.want, criteria.Matches(c.it), c.expr)
	}
	_, err := CompileExpression("")
	assert.Error(t, err)
}
