// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	rerrors "github.com/dotandev/retrace/internal/errors"
	"github.com/dotandev/retrace/internal/mappings"
	"github.com/dotandev/retrace/internal/names"
	"github.com/dotandev/retrace/internal/remap"
	"github.com/dotandev/retrace/internal/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mojangText = "com.example.Widget -> a:\n    void render() -> b\n"

const fabricText = "tiny\t2\t0\tofficial\tintermediary\n" +
	"c\ta\tnet/minecraft/class_1\n" +
	"\tm\t()V\tb\tmethod_1\n"

type fakeFetcher struct {
	mojang atomic.Int32
	fabric atomic.Int32
	fail   error
	// gate, when set, holds Mojang downloads until it is closed.
	gate chan struct{}
}

func (f *fakeFetcher) MojangMappings(ctx context.Context, version string) ([]byte, error) {
	f.mojang.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail != nil {
		return nil, f.fail
	}
	return []byte(mojangText), nil
}

func (f *fakeFetcher) FabricMappings(ctx context.Context, version string) ([]byte, error) {
	f.fabric.Add(1)
	if f.fail != nil {
		return nil, f.fail
	}
	return []byte(fabricText), nil
}

func TestPlan(t *testing.T) {
	tests := []struct {
		from, to names.Namespace
		want     string
		steps    int
	}{
		{names.Obfuscated, names.Mojang, "obf->mojang", 1},
		{names.Mojang, names.Obfuscated, "mojang->obf", 1},
		{names.FabricIntermediary, names.Mojang, "fabric->obf->mojang", 2},
		{names.Mojang, names.FabricIntermediary, "mojang->obf->fabric", 2},
		{names.Mojang, names.Mojang, "identity", 0},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			p, err := Plan(tt.from, tt.to)
			require.NoError(t, err)
			assert.Len(t, p, tt.steps)
			assert.Equal(t, tt.want, p.String())
		})
	}
}

func TestPlan_Errors(t *testing.T) {
	_, err := Plan("srg", names.Mojang)
	assert.True(t, errors.Is(err, rerrors.ErrUnknownNamespace))

	_, err = planOver([][2]names.Namespace{{names.Obfuscated, names.Mojang}}, names.FabricIntermediary, names.Mojang)
	assert.True(t, errors.Is(err, rerrors.ErrNoPath))
}

func TestStageOptions(t *testing.T) {
	opts, err := StageOptions("1.20.1", Step{names.Obfuscated, names.Mojang})
	require.NoError(t, err)
	assert.True(t, opts.Reverse)
	assert.Equal(t, mappings.DialectProGuard, opts.Dialect)

	opts, err = StageOptions("1.20.1", Step{names.FabricIntermediary, names.Obfuscated})
	require.NoError(t, err)
	assert.Equal(t, "intermediary", opts.FromColumn)
	assert.Equal(t, "official", opts.ToColumn)
	assert.Equal(t, "1.20.1 fabric_intermediary mappings", opts.File)

	_, err = StageOptions("1.20.1", Step{names.Mojang, names.FabricIntermediary})
	assert.True(t, errors.Is(err, rerrors.ErrNoPath))
}

func TestChain_FabricToMojang(t *testing.T) {
	f := &fakeFetcher{}
	p := New(f)

	chain, err := p.Chain(context.Background(), "1.20.1", names.FabricIntermediary, names.Mojang, remap.Options{})
	require.NoError(t, err)
	require.Len(t, chain, 2)

	out, summary, err := remap.Text(chain, "\tat net.minecraft.class_1.method_1(class_1.java:3)\n")
	require.NoError(t, err)
	assert.Equal(t, "\tat com.example.Widget.render(class_1.java:3)\n", out)
	assert.Equal(t, 2, summary.ResolvedCount)
	assert.Equal(t, 2, p.Len())
}

func TestContext_LoadsOnce(t *testing.T) {
	f := &fakeFetcher{}
	p := New(f)
	step := Step{names.Obfuscated, names.Mojang}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := p.Context(context.Background(), "1.20.1", step)
			assert.NoError(t, err)
			assert.Equal(t, names.Mojang, c.Graph.To)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.mojang.Load())
	assert.Equal(t, int32(0), f.fabric.Load())
}

func TestContext_CancelledCallerDoesNotFailOthers(t *testing.T) {
	f := &fakeFetcher{gate: make(chan struct{})}
	p := New(f)
	step := Step{names.Obfuscated, names.Mojang}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := p.Context(ctx, "1.20.1", step)
		first <- err
	}()
	require.Eventually(t, func() bool { return f.mojang.Load() == 1 }, time.Second, time.Millisecond)

	second := make(chan error, 1)
	go func() {
		c, err := p.Context(context.Background(), "1.20.1", step)
		if err == nil && c.Graph.To != names.Mojang {
			err = fmt.Errorf("unexpected context %v", c.Step)
		}
		second <- err
	}()

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(f.gate)
	assert.NoError(t, <-second)
	assert.Equal(t, int32(1), f.mojang.Load())
	assert.Equal(t, 1, p.Len())
}

func TestContext_Errors(t *testing.T) {
	f := &fakeFetcher{fail: fmt.Errorf("%w: offline", rerrors.ErrMappingNotAvailable)}
	p := New(f)
	step := Step{names.Obfuscated, names.Mojang}

	_, err := p.Context(context.Background(), "1.20.1", step)
	assert.True(t, errors.Is(err, rerrors.ErrMappingNotAvailable))
	assert.Zero(t, p.Len(), "failures are not cached")

	_, err = p.Context(context.Background(), "../etc", step)
	assert.True(t, errors.Is(err, rerrors.ErrValidation))
}

func TestLoadLocal(t *testing.T) {
	c, err := LoadLocal([]mappings.Source{
		{Data: []byte(mojangText), Options: mappings.ParseOptions{File: "base.txt", Reverse: true, From: names.Obfuscated, To: names.Mojang}},
		{Data: []byte("com.example.Gadget -> a:\n"), Options: mappings.ParseOptions{File: "overlay.txt", Reverse: true, From: names.Obfuscated, To: names.Mojang}},
	})
	require.NoError(t, err)
	assert.Equal(t, "com.example.Gadget", c.Resolver.Class("a").Name.Name())
	assert.Equal(t, "render", c.Resolver.Method(resolve.Method{Owner: "a", Name: "b"}).Name.Name())

	_, err = LoadLocal([]mappings.Source{
		{Data: []byte("broken\n"), Options: mappings.ParseOptions{File: "bad.txt"}},
	})
	var lerr *mappings.LoadError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, "bad.txt", lerr.Failures[0].File)
}
