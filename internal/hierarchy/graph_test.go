// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package hierarchy

import (
	"errors"
	"testing"

	rerrors "github.com/dotandev/retrace/internal/errors"
	"github.com/dotandev/retrace/internal/mappings"
	"github.com/dotandev/retrace/internal/names"
	"github.com/dotandev/retrace/internal/parsing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *mappings.Table {
	t.Helper()
	table, err := mappings.Parse(src, mappings.ParseOptions{Reverse: true, From: names.Obfuscated, To: names.Mojang})
	require.NoError(t, err)
	return table
}

const base = `com.example.Widget -> a:
# {"id":"hierarchy","superclass":"com.example.Base","interfaces":["com.example.Drawable","java.lang.Runnable"]}
    void render() -> x
    void render(int) -> x
    int count -> f
com.example.Base -> b:
    void tick() -> t
com.example.Drawable -> d:
`

func TestBuild_BaseGraph(t *testing.T) {
	g, err := Build(parse(t, base))
	require.NoError(t, err)
	assert.Equal(t, names.Obfuscated, g.From)

	a, ok := g.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "com.example.Widget", a.Deobfuscated.Name())
	assert.False(t, a.Stub)
	require.Len(t, a.Edges, 3)

	super := g.Node(a.Edges[0])
	assert.Equal(t, "b", super.Obfuscated.Name())
	assert.Equal(t, "d", g.Node(a.Edges[1]).Obfuscated.Name())

	runnable := g.Node(a.Edges[2])
	assert.Equal(t, "java.lang.Runnable", runnable.Obfuscated.Name())
	assert.True(t, runnable.Stub)
	assert.Empty(t, runnable.Edges)

	root, ok := g.Lookup(RootClass)
	require.True(t, ok)
	assert.True(t, root.Stub)
	id, ok := super.Superclass()
	require.True(t, ok)
	assert.Equal(t, root.ID, id)

	assert.Len(t, a.Methods("x"), 2)
	f, ok := a.Field("f")
	require.True(t, ok)
	assert.Equal(t, "count", f.Deobfuscated().Name())

	// a, b, d, the root stub and the Runnable stub
	assert.Equal(t, 5, g.Len())
}

func TestBuild_OverlayPrecedence(t *testing.T) {
	overlay := `com.example.FancyWidget -> a:
    void draw() -> x
    int total -> f
com.example.Base -> b:
# {"id":"hierarchy","superclass":"com.example.FancyWidget"}
`
	g, err := Build(parse(t, base), parse(t, overlay))
	require.NoError(t, err)

	a, _ := g.Lookup("a")
	assert.Equal(t, "com.example.FancyWidget", a.Deobfuscated.Name())

	overloads := a.Methods("x")
	require.Len(t, overloads, 2)
	assert.Equal(t, "draw", overloads[0].Deobfuscated().Name())
	assert.Equal(t, "render", overloads[1].Deobfuscated().Name())

	f, _ := a.Field("f")
	assert.Equal(t, "total", f.Deobfuscated().Name())

	// the overlay declares nothing for a, so its base edges stay
	require.Len(t, a.Edges, 3)
	assert.Equal(t, "b", g.Node(a.Edges[0]).Obfuscated.Name())

	// the overlay redeclares b's superclass
	b, _ := g.Lookup("b")
	assert.Equal(t, "a", g.Node(b.Edges[0]).Obfuscated.Name())
	assert.Len(t, b.Methods("t"), 1)
}

func TestBuild_MembersWithoutClassEntry(t *testing.T) {
	bld := mappings.NewBuilder(names.Obfuscated, names.Mojang, "manual")
	bld.AddMethod(mappings.NewMethodEntry("z", "m", "run", nil, nil, parsing.Position{}))
	g, err := Build(bld.Build())
	require.NoError(t, err)

	z, ok := g.Lookup("z")
	require.True(t, ok)
	assert.True(t, z.Deobfuscated.IsZero())
	assert.Nil(t, z.Class)
	assert.Len(t, z.Methods("m"), 1)
}

func TestBuild_NamespaceMismatch(t *testing.T) {
	other, err := mappings.Parse("x -> y:\n", mappings.ParseOptions{From: names.FabricIntermediary, To: names.Obfuscated})
	require.NoError(t, err)

	_, err = Build(parse(t, base), other)
	require.Error(t, err)
	assert.True(t, errors.Is(err, rerrors.ErrValidation))
}
