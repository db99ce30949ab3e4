package llir

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestModuleAppendOnly(t *testing.T) {
	m := &Module{}
	m.AddFunctionDefinition(FunctionDefinition{Name: "id_entry"})
	m.AddVariableDefinition(VariableDefinition{Name: "x"})

	assert.Len(t, m.FnDefs, 1)
	assert.Len(t, m.VarDefs, 1)

	fd, ok := m.FindFunctionDefinition("id_entry")
	assert.True(t, ok)
	assert.Equal(t, "id_entry", fd.Name)
}

func TestUnionMemberIndexStable(t *testing.T) {
	u := Union{Members: []Type{Record{Fields: nil}, Record{Fields: []Type{Primitive{Kind: Int64}}}}}
	v1 := UnionValue{Type: u, MemberIndex: 0, Value: RecordValue{}}
	v2 := UnionValue{Type: u, MemberIndex: 0, Value: RecordValue{}}

	if diff := cmp.Diff(v1, v2); diff != "" {
		t.Fatalf("unexpected diff: %s", diff)
	}
}

func TestRecordFieldOrderIsPositional(t *testing.T) {
	r := Record{Fields: []Type{Pointer{Element: Primitive{Kind: Int64}}, Primitive{Kind: PointerInt}}}
	assert.Equal(t, Pointer{Element: Primitive{Kind: Int64}}, r.Fields[0])
	assert.Equal(t, Primitive{Kind: PointerInt}, r.Fields[1])
}
