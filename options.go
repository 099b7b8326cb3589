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
	"fmt"

	"github.com/cloudwego/fplicm/internal/opts"
)

// Option is the property setter function for opts.Options.
type Option func(*opts.Options)

// WithMaxHopsFloor sets the minimum number of steps the frequent path search
// may take in any loop, regardless of the loop size.
//
// The default value of this option is "8".
func WithMaxHopsFloor(hops int) Option {
	if hops < 1 {
		panic(fmt.Sprintf("fplicm: invalid hops floor: %d", hops))
	} else {
		return func(o *opts.Options) { o.MaxHopsFloor = hops }
	}
}

// WithHopsPerBlock sets how many steps the frequent path search may take for
// every block of the loop. The search stops after the larger of this value
// times the number of loop blocks and the hops floor.
//
// The default value of this option is "4".
func WithHopsPerBlock(hops int) Option {
	if hops < 0 {
		panic(fmt.Sprintf("fplicm: invalid hops per block: %d", hops))
	} else {
		return func(o *opts.Options) { o.HopsPerBlock = hops }
	}
}

// WithHotThreshold sets the probability an edge must reach to be followed by
// the frequent path search, as num/den.
//
// The default value of this option is "4/5".
func WithHotThreshold(num uint32, den uint32) Option {
	if num == 0 || den == 0 || num > den {
		panic(fmt.Sprintf("fplicm: invalid hot threshold: %d/%d", num, den))
	} else {
		return func(o *opts.Options) { o.HotNum, o.HotDen = num, den }
	}
}

// WithVerify checks the function with ir.Verify before the pass runs, and
// again after it if anything was changed.
//
// This value can also be configured with the `FPLICM_VERIFY` environment
// variable.
func WithVerify(verify bool) Option {
	return func(o *opts.Options) { o.Verify = verify }
}

// WithTrace logs the decision taken for every loop to stderr, followed by a
// dump of the loop reports.
//
// This value can also be configured with the `FPLICM_TRACE` environment
// variable.
func WithTrace(trace bool) Option {
	return func(o *opts.Options) { o.Trace = trace }
}

// WithDebugDir writes a Graphviz rendering of every processed function and
// an SVG drawing of every frequent path into dir, which must exist.
//
// This value can also be configured with the `FPLICM_DEBUG_DIR` environment
// variable.
func WithDebugDir(dir string) Option {
	return func(o *opts.Options) { o.DebugDir = dir }
}

// SetMaxHopsFloor sets the default hops floor for all passes created from
// now on.
//
// This value can also be configured with the `FPLICM_MAX_HOPS_FLOOR`
// environment variable.
//
// Returns the old opts.MaxHopsFloor value.
func SetMaxHopsFloor(hops int) int {
	hops, opts.MaxHopsFloor = opts.MaxHopsFloor, hops
	return hops
}

// SetHopsPerBlock sets the default hops per block for all passes created
// from now on.
//
// This value can also be configured with the `FPLICM_HOPS_PER_BLOCK`
// environment variable.
//
// Returns the old opts.HopsPerBlock value.
func SetHopsPerBlock(hops int) int {
	hops, opts.HopsPerBlock = opts.HopsPerBlock, hops
	return hops
}

func makeOptions(options []Option) opts.Options {
	ret := opts.GetDefaultOptions()
	for _, fn := range options {
		fn(&ret)
	}
	return ret
}
