/*
 * Copyright 2022 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package fplicm

import (
	"github.com/cloudwego/fplicm/analysis"
	"github.com/cloudwego/fplicm/internal/hoist"
	"github.com/cloudwego/fplicm/internal/opts"
	"github.com/cloudwego/fplicm/ir"
)

// Pipeline names of the available passes.
const (
	CorrectnessPass = "fplicm-correctness"
	PerformancePass = "fplicm-performance"
)

type _Runner interface {
	Run(fn *ir.Func, am *analysis.Manager) hoist.Result
}

type _PassDescriptor struct {
	name string
	desc string
	ctor func(o opts.Options) _Runner
}

var _passes = [...]_PassDescriptor{
	{name: CorrectnessPass, desc: "Frequent Path Load Caching", ctor: func(o opts.Options) _Runner { return hoist.NewCorrectness(o) }},
	{name: PerformancePass, desc: "Frequent Path Analysis", ctor: func(o opts.Options) _Runner { return hoist.NewPerformance(o) }},
}

// Passes returns the pipeline names of all the passes.
func Passes() []string {
	ret := make([]string, 0, len(_passes))
	for _, p := range _passes {
		ret = append(ret, p.name)
	}
	return ret
}

// Pass is a configured pass, ready to run on functions.
type Pass interface {
	Name() string
	Description() string
	Run(fn *ir.Func, am *analysis.Manager) Result
}

type _Pass struct {
	desc *_PassDescriptor
	impl _Runner
	opts opts.Options
}

func (self *_Pass) Name() string {
	return self.desc.name
}

func (self *_Pass) Description() string {
	return self.desc.desc
}

// Run applies the pass to fn with the analyses of am, then invalidates them
// unless nothing was changed.
func (self *_Pass) Run(fn *ir.Func, am *analysis.Manager) Result {
	res := self.impl.Run(fn, am)
	ret := Result{
		Func:        fn.Name,
		Preserved:   analysis.PreserveAll,
		Irreducible: res.Irreducible,
		Loops:       res.Loops,
	}
	if res.Changed {
		ret.Preserved = analysis.PreserveNone
	}
	am.Invalidate(ret.Preserved)
	return ret
}

// Lookup finds a pass by its pipeline name and configures it.
func Lookup(name string, options ...Option) (Pass, error) {
	if p, err := lookup(name, makeOptions(options)); err != nil {
		return nil, err
	} else {
		return p, nil
	}
}

func lookup(name string, o opts.Options) (*_Pass, error) {
	for i := range _passes {
		if p := &_passes[i]; p.name == name {
			return &_Pass{desc: p, impl: p.ctor(o), opts: o}, nil
		}
	}
	return nil, UnknownPassError{Name: name}
}
