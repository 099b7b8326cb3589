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

// Package fplicm caches memory loads on the frequent path of loops.
//
// For every loop with a preheader, the pass follows the hot edges from the
// header back to it and splits the loop into frequent and infrequent blocks.
// A load on the frequent path whose location is written only by infrequent
// blocks is rewritten to read a stack slot instead. The slot is seeded in
// the preheader and reloaded after every infrequent store to the location.
//
// Locations are identified by their pointer with the no-op pointer casts
// stripped. Two different pointers to the same location are not recognized
// as such, so a store through an alias of a cached pointer leaves the slot
// stale.
package fplicm

import (
	"runtime"
	"sync"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/cloudwego/fplicm/analysis"
	"github.com/cloudwego/fplicm/internal/hoist"
	"github.com/cloudwego/fplicm/ir"
)

type (
	Slot       = hoist.Slot
	SkipReason = hoist.SkipReason
	LoopReport = hoist.Report
)

const (
	NotSkipped             = hoist.NotSkipped
	SkipNoPreheader        = hoist.SkipNoPreheader
	SkipNoFrequentPath     = hoist.SkipNoFrequentPath
	SkipNoBackedge         = hoist.SkipNoBackedge
	SkipNoInfrequentBlocks = hoist.SkipNoInfrequentBlocks
	SkipNoCandidates       = hoist.SkipNoCandidates
	SkipAnalysisOnly       = hoist.SkipAnalysisOnly
)

// Result is the outcome of a pass on one function.
type Result struct {
	Func        string
	Preserved   analysis.Preserved
	Irreducible bool
	Loops       []*LoopReport
}

// Changed reports whether the function was modified, in which case none of
// its analyses are valid anymore.
func (self Result) Changed() bool {
	return self.Preserved != analysis.PreserveAll
}

var _pool = gopool.NewPool("fplicm", int32(runtime.GOMAXPROCS(0)), gopool.NewConfig())

// Run looks up the pass by name and runs it on fn with freshly computed
// analyses.
func Run(name string, fn *ir.Func, options ...Option) (Result, error) {
	o := makeOptions(options)
	p, err := lookup(name, o)
	if err != nil {
		return Result{}, err
	}
	return runFunc(p, fn)
}

// RunModule runs the pass on every function of m concurrently. Results are
// in the order of m.Funcs; the error is the first one in that order.
func RunModule(name string, m *ir.Module, options ...Option) ([]Result, error) {
	o := makeOptions(options)
	p, err := lookup(name, o)
	if err != nil {
		return nil, err
	}

	/* every function belongs to exactly one task */
	wg := sync.WaitGroup{}
	ret := make([]Result, len(m.Funcs))
	errs := make([]error, len(m.Funcs))

	/* fan out */
	for i, fn := range m.Funcs {
		i, fn := i, fn
		wg.Add(1)
		_pool.Go(func() {
			defer wg.Done()
			defer func() {
				if v := recover(); v != nil {
					errs[i] = PanicError{Func: fn.Name, Value: v}
				}
			}()
			ret[i], errs[i] = runFunc(p, fn)
		})
	}

	/* wait for all of them */
	wg.Wait()
	for _, err = range errs {
		if err != nil {
			return ret, err
		}
	}
	return ret, nil
}

func runFunc(p *_Pass, fn *ir.Func) (Result, error) {
	if p.opts.Verify {
		if err := ir.Verify(fn); err != nil {
			return Result{Func: fn.Name}, err
		}
	}

	/* run the pass */
	ret := p.Run(fn, analysis.NewManager(fn))

	/* the function must still be valid */
	if p.opts.Verify && ret.Changed() {
		if err := ir.Verify(fn); err != nil {
			return ret, err
		}
	}
	return ret, nil
}
