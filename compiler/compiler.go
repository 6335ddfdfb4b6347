// Copyright (c) 2024 John Millikin <john@john-millikin.com>
//
// Permission to use, copy, modify, and/or distribute this software for any
// purpose with or without fee is hereby granted.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH
// REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY
// AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT,
// INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM
// LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR
// OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR
// PERFORMANCE OF THIS SOFTWARE.
//
// SPDX-License-Identifier: 0BSD

// Package compiler resolves ASN.1 module text into a graph of concrete,
// type-checked objects.
//
// Compilation runs in passes over a worklist of assignments. An assignment
// whose dependencies are not compiled yet fails with a [KindLink] error and
// is retried from its raw text on the next pass. A pass that resolves
// nothing aborts the run. After the loop, every module is classified and
// the verification pass checks constraints and parameter bookkeeping.
package compiler

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"go.asn1c.org/asn1c/ref"
)

type CompileOption interface {
	apply(*CompileOptions)
}

type compileOption func(*CompileOptions)

func (f compileOption) apply(opts *CompileOptions) { f(opts) }

type CompileOptions struct {
	autoTags   bool
	extImplied bool
	warnOnly   bool
	order      []ObjectName
	loadList   map[string][]string
	logger     *slog.Logger
	caching    bool
}

// WithAutomaticTags compiles every module as if it declared AUTOMATIC TAGS.
func WithAutomaticTags() CompileOption {
	return compileOption(func(opts *CompileOptions) {
		opts.autoTags = true
	})
}

// WithExtensibilityImplied compiles every module as if it declared
// EXTENSIBILITY IMPLIED.
func WithExtensibilityImplied() CompileOption {
	return compileOption(func(opts *CompileOptions) {
		opts.extImplied = true
	})
}

// WithWarnOnly downgrades the soft verification checks (empty constraint
// intersections, value conformance, missing class fields) to warnings.
func WithWarnOnly() CompileOption {
	return compileOption(func(opts *CompileOptions) {
		opts.warnOnly = true
	})
}

// WithOrder sets the initial worklist order. Assignments not listed follow
// in declaration order.
func WithOrder(order []ObjectName) CompileOption {
	return compileOption(func(opts *CompileOptions) {
		opts.order = order
	})
}

// WithLoadList restricts the worklist of the listed modules to the given
// assignment names. Their dependencies are compiled on demand.
func WithLoadList(loadList map[string][]string) CompileOption {
	return compileOption(func(opts *CompileOptions) {
		opts.loadList = loadList
	})
}

func WithLogger(logger *slog.Logger) CompileOption {
	return compileOption(func(opts *CompileOptions) {
		opts.logger = logger
	})
}

// WithCaching controls memoization of reference resolution once a
// compilation run has completed. It is on by default.
func WithCaching(enabled bool) CompileOption {
	return compileOption(func(opts *CompileOptions) {
		opts.caching = enabled
	})
}

func NewCompileOptions(opts ...CompileOption) *CompileOptions {
	compileOptions := &CompileOptions{caching: true}
	for _, opt := range opts {
		opt.apply(compileOptions)
	}
	return compileOptions
}

// ObjectName is a fully qualified assignment name.
type ObjectName = ref.Name

// Source is one input text, usually the content of one file.
type Source struct {
	Name string
	Text string
}

type logger struct {
	l *slog.Logger
}

func (lg logger) log(level slog.Level, msg string, attrs ...slog.Attr) {
	if lg.l == nil {
		return
	}
	lg.l.LogAttrs(context.Background(), level, msg, attrs...)
}

// Graph is the symbol table of a sequence of compilation runs. Modules
// compiled by one call to Compile are visible to the next, so that specs
// spread over several inputs can import from each other.
//
// A Graph is not safe for concurrent use.
type Graph struct {
	opts    *CompileOptions
	log     logger
	modules map[string]*Module
	order   []*Module
	builtin *Module
	lastID  int

	// cache is only set between runs, when every object is final.
	cache    map[int]*Object
	warnings []*Warning

	intType *Object
	oidType *Object
}

func NewGraph(opts ...CompileOption) *Graph {
	g := &Graph{
		opts:    NewCompileOptions(opts...),
		modules: make(map[string]*Module),
	}
	g.log = logger{g.opts.logger}
	g.intType = &Object{ID: g.nextID(), Type: TypeInteger, content: true}
	g.oidType = &Object{ID: g.nextID(), Type: TypeObjectIdentifier, content: true}
	g.loadBuiltins()
	return g
}

// Compile compiles srcs into a fresh graph.
func Compile(srcs []Source, opts ...CompileOption) (*Result, error) {
	return NewGraph(opts...).Compile(srcs)
}

// Result is the outcome of one successful compilation run.
type Result struct {
	graph    *Graph
	modules  []*Module
	Warnings []*Warning
}

// Modules returns the modules compiled by this run, in input order.
func (r *Result) Modules() []*Module {
	return r.modules
}

// Module returns the named module, including modules compiled by earlier
// runs on the same graph.
func (r *Result) Module(name string) *Module {
	return r.graph.modules[name]
}

func (r *Result) Graph() *Graph {
	return r.graph
}

func (g *Graph) nextID() int {
	g.lastID++
	return g.lastID
}

func (g *Graph) warn(w *Warning) {
	g.warnings = append(g.warnings, w)
}

// soft reports a verification failure that warn-only mode downgrades.
func (g *Graph) soft(err error) error {
	var cerr *Error
	if !g.opts.warnOnly || !errors.As(err, &cerr) {
		return err
	}
	g.warn(warnFromError(cerr))
	return nil
}

// Module returns a compiled module by name.
func (g *Graph) Module(name string) *Module {
	return g.modules[name]
}

// Modules returns every module of the graph in load order.
func (g *Graph) Modules() []*Module {
	return slices.Clone(g.order)
}

func (g *Graph) Compile(srcs []Source) (*Result, error) {
	g.cache = nil
	firstWarning := len(g.warnings)

	mods, err := g.loadSources(srcs)
	if err != nil {
		return nil, err
	}
	if err := g.run(g.worklist(mods)); err != nil {
		return nil, err
	}
	for _, mod := range mods {
		mod.classify()
	}
	if g.opts.caching {
		g.cache = make(map[int]*Object)
	}
	for _, mod := range mods {
		if err := g.verifyModule(mod); err != nil {
			return nil, err
		}
	}
	return &Result{
		graph:    g,
		modules:  mods,
		Warnings: slices.Clone(g.warnings[firstWarning:]),
	}, nil
}

// worklist lists the entries to compile, in the configured order.
func (g *Graph) worklist(mods []*Module) []*entry {
	var out []*entry
	add := func(e *entry) {
		if e == nil || e.queued || e.obj != nil {
			return
		}
		e.queued = true
		out = append(out, e)
	}
	fresh := make(map[*Module]bool, len(mods))
	for _, mod := range mods {
		fresh[mod] = true
	}
	for _, name := range g.opts.order {
		mod := g.modules[name.Module]
		if mod == nil || !fresh[mod] {
			// compiled by an earlier run
			continue
		}
		add(mod.entries[name.Name])
	}
	for _, mod := range mods {
		names, restricted := g.opts.loadList[mod.Name]
		for _, e := range mod.assigns {
			if restricted && !slices.Contains(names, e.name) {
				continue
			}
			add(e)
		}
	}
	return out
}

func (g *Graph) run(pending []*entry) error {
	for pass := 1; len(pending) > 0; pass++ {
		g.log.log(slog.LevelDebug, "compilation pass",
			slog.Int("pass", pass),
			slog.Int("pending", len(pending)))

		var deferred []*entry
		progress := false
		for _, e := range pending {
			obj, err := g.compileEntry(e)
			if err == nil {
				e.obj = obj
				e.waitFor = ref.Name{}
				progress = true
				continue
			}
			var cerr *Error
			if !errors.As(err, &cerr) || cerr.kind != KindLink {
				return withObject(err, e.qualifiedName())
			}
			g.log.log(slog.LevelDebug, "deferred",
				slog.String("object", e.qualifiedName()),
				slog.String("waiting_for", cerr.waitFor.String()))
			e.waitFor = cerr.waitFor
			deferred = append(deferred, e)
			if dep := g.entry(cerr.waitFor); dep != nil && !dep.queued && dep.obj == nil {
				dep.queued = true
				deferred = append(deferred, dep)
				progress = true
			}
		}
		if !progress {
			return g.stalled(deferred)
		}
		pending = deferred
	}
	return nil
}

func (g *Graph) entry(name ref.Name) *entry {
	if mod := g.modules[name.Module]; mod != nil {
		return mod.entries[name.Name]
	}
	if name.Module == g.builtin.Name {
		return g.builtin.entries[name.Name]
	}
	return nil
}

// stalled explains a pass without progress: a cycle in the wait-for graph
// is a TextError naming it, anything else lists every pending entry.
func (g *Graph) stalled(pending []*entry) error {
	inPending := make(map[*entry]bool, len(pending))
	for _, e := range pending {
		inPending[e] = true
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[*entry]int, len(pending))
	var stack []*entry
	var cycle []*entry
	var visit func(e *entry) bool
	visit = func(e *entry) bool {
		state[e] = visiting
		stack = append(stack, e)
		if next := g.entry(e.waitFor); next != nil && inPending[next] {
			switch state[next] {
			case visiting:
				start := slices.Index(stack, next)
				cycle = append(slices.Clone(stack[start:]), next)
				return true
			case unvisited:
				if visit(next) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[e] = done
		return false
	}
	for _, e := range pending {
		if state[e] == unvisited && visit(e) {
			names := make([]string, len(cycle))
			for ii, ce := range cycle {
				names[ii] = ce.qualifiedName()
			}
			return withObject(errRefCycle(names), cycle[0].qualifiedName())
		}
	}

	names := make([]ref.Name, len(pending))
	for ii, e := range pending {
		names[ii] = ref.Name{Module: e.mod.Name, Name: e.name}
	}
	return errStall(names)
}

// Resolve returns the object holding the type content of o: o itself, or
// the end of its reference chain.
func (g *Graph) Resolve(o *Object) (*Object, error) {
	return g.contentOf(o)
}

// RefChain returns o followed by every object its reference chain passes
// through.
func (g *Graph) RefChain(o *Object) ([]*Object, error) {
	return g.getRefChain(o)
}
