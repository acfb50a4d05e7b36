// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"testing"

	"github.com/dotandev/retrace/internal/hierarchy"
	"github.com/dotandev/retrace/internal/mappings"
	"github.com/dotandev/retrace/internal/names"
	"github.com/dotandev/retrace/internal/parsing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t *testing.T
	b *mappings.Builder
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, b: mappings.NewBuilder(names.Obfuscated, names.Mojang, "test")}
}

func (f *fixture) class(obf, deobf, super string, ifaces ...string) {
	e := mappings.NewClassEntry(obf, deobf, parsing.Position{})
	st := &mappings.Supertypes{}
	if super != "" {
		st.Superclass = names.Class(super)
	}
	for _, i := range ifaces {
		st.Interfaces = append(st.Interfaces, names.Class(i))
	}
	e.Supertypes = st
	f.b.AddClass(e)
}

func (f *fixture) method(owner, obf, deobf, sig string, lines ...mappings.LineRange) {
	d, err := names.ParseDescriptor(sig)
	require.NoError(f.t, err)
	f.b.AddMethod(mappings.NewMethodEntry(owner, obf, deobf, &d, lines, parsing.Position{}))
}

func (f *fixture) field(owner, obf, deobf string) {
	f.b.AddField(mappings.NewFieldEntry(owner, obf, deobf, nil, parsing.Position{}))
}

func (f *fixture) resolver() *Resolver {
	require.Empty(f.t, f.b.Errors())
	g, err := hierarchy.Build(f.b.Build())
	require.NoError(f.t, err)
	return New(g)
}

func TestMethod_DirectHitShortCircuits(t *testing.T) {
	f := newFixture(t)
	f.class("b", "Base", "")
	f.method("b", "foo", "baseName", "()V")
	f.class("a", "Sub", "b")
	f.method("a", "foo", "subName", "()V")
	r := f.resolver()

	res := r.Method(Method{Owner: "a", Name: "foo"})
	require.True(t, res.Resolved())
	assert.Equal(t, "subName", res.Name.Name())
	assert.Equal(t, names.KindMethod, res.Name.Kind())
}

func TestMethod_InheritedFromSuperclass(t *testing.T) {
	f := newFixture(t)
	f.class("B", "Base", "")
	f.method("B", "foo", "bar", "()V")
	f.class("A", "Sub", "B")
	r := f.resolver()

	res := r.Method(Method{Owner: "A", Name: "foo"})
	require.True(t, res.Resolved())
	assert.Equal(t, "bar", res.Name.Name())
}

func TestMethod_SuperclassBeforeInterfaces(t *testing.T) {
	f := newFixture(t)
	f.class("I", "Iface", "")
	f.method("I", "m", "fromInterface", "()V")
	f.class("S", "Super", "")
	f.method("S", "m", "fromSuper", "()V")
	f.class("C", "Impl", "S", "I")
	f.class("D", "Other", "", "I")
	r := f.resolver()

	assert.Equal(t, "fromSuper", r.Method(Method{Owner: "C", Name: "m"}).Name.Name())
	assert.Equal(t, "fromInterface", r.Method(Method{Owner: "D", Name: "m"}).Name.Name())
}

func TestMethod_Overloads(t *testing.T) {
	f := newFixture(t)
	f.class("C", "Widget", "")
	f.method("C", "m", "render", "()V", mappings.LineRange{ObfStart: 1, ObfEnd: 5, OrigStart: 10, OrigEnd: 14})
	f.method("C", "m", "resize", "(I)V", mappings.LineRange{ObfStart: 6, ObfEnd: 9, OrigStart: 30, OrigEnd: 33})
	f.method("C", "n", "tick", "()V")
	f.method("C", "n", "tick", "(J)V")
	r := f.resolver()

	t.Run("without signature is ambiguous", func(t *testing.T) {
		res := r.Method(Method{Owner: "C", Name: "m"})
		assert.False(t, res.Resolved())
		assert.Equal(t, AmbiguousOverload, res.Reason)
		assert.Len(t, res.Candidates, 2)
		assert.True(t, res.Name.IsZero())
	})

	t.Run("signature disambiguates", func(t *testing.T) {
		sig, err := names.ParseDescriptor("(I)V")
		require.NoError(t, err)
		res := r.Method(Method{Owner: "C", Name: "m", Signature: &sig})
		require.True(t, res.Resolved())
		assert.Equal(t, "resize", res.Name.Name())
	})

	t.Run("line narrows", func(t *testing.T) {
		res := r.Method(Method{Owner: "C", Name: "m", Line: 7, HasLine: true})
		require.True(t, res.Resolved())
		assert.Equal(t, "resize", res.Name.Name())
		line, ok := res.MapLine(7)
		assert.True(t, ok)
		assert.Equal(t, uint32(31), line)
	})

	t.Run("line outside every range stays ambiguous", func(t *testing.T) {
		res := r.Method(Method{Owner: "C", Name: "m", Line: 40, HasLine: true})
		assert.Equal(t, AmbiguousOverload, res.Reason)
	})

	t.Run("overloads sharing a name stay ambiguous", func(t *testing.T) {
		res := r.Method(Method{Owner: "C", Name: "n"})
		assert.False(t, res.Resolved())
		assert.Equal(t, AmbiguousOverload, res.Reason)
		require.Len(t, res.Candidates, 2)
		assert.Equal(t, "tick", res.Candidates[0].Deobfuscated().Name())
		assert.Equal(t, "tick", res.Candidates[1].Deobfuscated().Name())
	})

	t.Run("signature picks one of the same-named overloads", func(t *testing.T) {
		sig, err := names.ParseDescriptor("(J)V")
		require.NoError(t, err)
		res := r.Method(Method{Owner: "C", Name: "n", Signature: &sig})
		require.True(t, res.Resolved())
		assert.Equal(t, "tick", res.Name.Name())
	})
}

func TestMethod_LineRemap(t *testing.T) {
	f := newFixture(t)
	f.class("C", "Widget", "")
	f.method("C", "x", "render", "()V", mappings.LineRange{ObfStart: 10, ObfEnd: 12, OrigStart: 40, OrigEnd: 42})
	r := f.resolver()

	res := r.Method(Method{Owner: "C", Name: "x"})
	line, ok := res.MapLine(11)
	assert.True(t, ok)
	assert.Equal(t, uint32(41), line)

	line, ok = res.MapLine(99)
	assert.False(t, ok)
	assert.Equal(t, uint32(99), line)
}

func TestMethod_CyclicHierarchy(t *testing.T) {
	f := newFixture(t)
	f.class("A", "First", "B")
	f.class("B", "Second", "A")
	f.method("B", "present", "found", "()V")
	r := f.resolver()

	res := r.Method(Method{Owner: "A", Name: "missing"})
	assert.Equal(t, CyclicHierarchy, res.Reason)
	assert.Equal(t, CyclicHierarchy, r.Method(Method{Owner: "B", Name: "missing"}).Reason)
	assert.Equal(t, CyclicHierarchy, r.Field("A", "missing").Reason)

	// a hit inside the cycle is still found
	assert.Equal(t, "found", r.Method(Method{Owner: "A", Name: "present"}).Name.Name())
}

func TestMethod_DiamondIsNotACycle(t *testing.T) {
	f := newFixture(t)
	f.class("I0", "Root", "")
	f.class("I1", "Left", "", "I0")
	f.class("I2", "Right", "", "I0")
	f.class("C", "Impl", "", "I1", "I2")
	r := f.resolver()

	assert.Equal(t, NoMapping, r.Method(Method{Owner: "C", Name: "missing"}).Reason)
}

func TestMethod_NoMapping(t *testing.T) {
	f := newFixture(t)
	f.class("A", "Known", "unknown.Parent")
	r := f.resolver()

	assert.Equal(t, NoMapping, r.Method(Method{Owner: "A", Name: "x"}).Reason)
	assert.Equal(t, NoMapping, r.Method(Method{Owner: "nope", Name: "x"}).Reason)
	assert.Equal(t, NoMapping, r.Method(Method{Owner: "unknown.Parent", Name: "x"}).Reason)
}

func TestMethod_SpecialNamesKeepTheirName(t *testing.T) {
	f := newFixture(t)
	f.class("A", "Known", "")
	r := f.resolver()

	res := r.Method(Method{Owner: "A", Name: "<init>"})
	require.True(t, res.Resolved())
	assert.Equal(t, "<init>", res.Name.Name())
	assert.Nil(t, res.Entry)
}

func TestField(t *testing.T) {
	f := newFixture(t)
	f.class("I", "Constants", "")
	f.field("I", "k", "LIMIT")
	f.class("S", "Super", "")
	f.field("S", "v", "value")
	f.class("C", "Impl", "S", "I")
	r := f.resolver()

	assert.Equal(t, "value", r.Field("C", "v").Name.Name())
	assert.Equal(t, names.KindField, r.Field("C", "v").Name.Kind())
	assert.Equal(t, NoMapping, r.Field("C", "k").Reason)
	assert.Equal(t, "LIMIT", r.Field("I", "k").Name.Name())
}

func TestClass(t *testing.T) {
	f := newFixture(t)
	f.class("a.b.C", "com.example.Widget", "x.Missing")
	r := f.resolver()

	res := r.Class("a.b.C")
	require.True(t, res.Resolved())
	assert.Equal(t, "com.example.Widget", res.Name.Name())

	assert.Equal(t, NoMapping, r.Class("x.Missing").Reason)
	assert.Equal(t, NoMapping, r.Class("zzz").Reason)
	assert.Equal(t, "no mapping", NoMapping.String())
}
