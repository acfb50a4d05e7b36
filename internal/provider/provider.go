// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package provider turns a version and a pair of namespaces into a ready
// remapping chain, loading and caching the mapping data each step needs.
package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dotandev/retrace/internal/errors"
	"github.com/dotandev/retrace/internal/hierarchy"
	"github.com/dotandev/retrace/internal/logger"
	"github.com/dotandev/retrace/internal/mappings"
	"github.com/dotandev/retrace/internal/mapsource"
	"github.com/dotandev/retrace/internal/names"
	"github.com/dotandev/retrace/internal/remap"
	"github.com/dotandev/retrace/internal/resolve"
	"github.com/dotandev/retrace/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Fetcher supplies raw mapping files. *mapsource.Client implements it.
type Fetcher interface {
	MojangMappings(ctx context.Context, version string) ([]byte, error)
	FabricMappings(ctx context.Context, version string) ([]byte, error)
}

// Context is the loaded mapping data of one step for one version.
type Context struct {
	Version  string
	Step     Step
	Graph    *hierarchy.Graph
	Resolver *resolve.Resolver
}

// NewContext builds a context from already parsed tables, base first.
func NewContext(version string, tables ...*mappings.Table) (*Context, error) {
	g, err := hierarchy.Build(tables...)
	if err != nil {
		return nil, err
	}
	return &Context{
		Version:  version,
		Step:     Step{From: g.From, To: g.To},
		Graph:    g,
		Resolver: resolve.New(g),
	}, nil
}

// Provider caches contexts by version and step. It is safe for concurrent
// use; concurrent requests for the same context share one load.
type Provider struct {
	fetcher Fetcher
	group   singleflight.Group

	mu       sync.RWMutex
	contexts map[string]*Context
}

func New(f Fetcher) *Provider {
	return &Provider{fetcher: f, contexts: make(map[string]*Context)}
}

// StageOptions returns how the mapping file serving s is parsed.
func StageOptions(version string, s Step) (mappings.ParseOptions, error) {
	opts := mappings.ParseOptions{From: s.From, To: s.To}
	switch {
	case s.From == names.Obfuscated && s.To == names.Mojang:
		opts.Dialect = mappings.DialectProGuard
		opts.Reverse = true
	case s.From == names.Mojang && s.To == names.Obfuscated:
		opts.Dialect = mappings.DialectProGuard
	case s.From == names.Obfuscated && s.To == names.FabricIntermediary,
		s.From == names.FabricIntermediary && s.To == names.Obfuscated:
		opts.Dialect = mappings.DialectTiny
		opts.FromColumn = s.From.TinyName()
		opts.ToColumn = s.To.TinyName()
	default:
		return opts, errors.WrapNoPath(string(s.From), string(s.To))
	}
	opts.File = fmt.Sprintf("%s %s mappings", version, sourceName(s))
	return opts, nil
}

func sourceName(s Step) string {
	if s.From == names.Mojang || s.To == names.Mojang {
		return mapsource.KindMojang
	}
	return mapsource.KindFabric
}

// Context returns the context of step s for version, loading it on first
// use.
func (p *Provider) Context(ctx context.Context, version string, s Step) (*Context, error) {
	if err := mapsource.CheckVersion(version); err != nil {
		return nil, err
	}
	key := version + "|" + s.String()

	p.mu.RLock()
	c, ok := p.contexts[key]
	p.mu.RUnlock()
	if ok {
		return c, nil
	}

	// The load is shared by every waiter on key, so it must not stop when
	// the caller that started it goes away.
	loadCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan(key, func() (interface{}, error) {
		p.mu.RLock()
		c, ok := p.contexts[key]
		p.mu.RUnlock()
		if ok {
			return c, nil
		}

		c, err := p.load(loadCtx, version, s)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.contexts[key] = c
		p.mu.Unlock()
		return c, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Context), nil
	}
}

func (p *Provider) load(ctx context.Context, version string, s Step) (*Context, error) {
	tracer := telemetry.GetTracer()
	ctx, span := tracer.Start(ctx, "load_mappings")
	span.SetAttributes(
		attribute.String("version", version),
		attribute.String("from", string(s.From)),
		attribute.String("to", string(s.To)),
	)
	defer span.End()

	start := time.Now()
	opts, err := StageOptions(version, s)
	if err != nil {
		return nil, err
	}

	var data []byte
	if sourceName(s) == mapsource.KindMojang {
		data, err = p.fetcher.MojangMappings(ctx, version)
	} else {
		data, err = p.fetcher.FabricMappings(ctx, version)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}

	table, err := mappings.Parse(string(data), opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return nil, fmt.Errorf("failed to parse %s: %w", opts.File, err)
	}
	span.SetAttributes(attribute.Int("entries", table.Len()))

	_, buildSpan := tracer.Start(ctx, "build_hierarchy")
	c, err := NewContext(version, table)
	if c != nil {
		buildSpan.SetAttributes(attribute.Int("classes", c.Graph.Len()))
	}
	buildSpan.End()
	if err != nil {
		return nil, err
	}

	logger.Logger.Info("Mappings loaded",
		"version", version,
		"step", s.String(),
		"entries", table.Len(),
		"classes", c.Graph.Len(),
		"duration", time.Since(start),
	)
	return c, nil
}

// Chain plans a path from one namespace to another and returns a chain of
// reconstructors for it. Steps load in parallel.
func (p *Provider) Chain(ctx context.Context, version string, from, to names.Namespace, opts remap.Options) (remap.Chain, error) {
	path, err := Plan(from, to)
	if err != nil {
		return nil, err
	}
	logger.Logger.Debug("Planned namespace path", "version", version, "path", path.String())

	contexts := make([]*Context, len(path))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range path {
		g.Go(func() error {
			c, err := p.Context(gctx, version, s)
			if err != nil {
				return err
			}
			contexts[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	chain := make(remap.Chain, len(contexts))
	for i, c := range contexts {
		chain[i] = remap.New(c.Resolver, opts)
	}
	return chain, nil
}

// Len reports how many contexts are cached.
func (p *Provider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.contexts)
}
