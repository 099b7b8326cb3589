/*
 * Copyright 2022 ByteDance Inc.
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

package analysis

import (
    `github.com/cloudwego/fplicm/ir`
)

// Preserved tells which analyses are still valid after a pass ran.
type Preserved uint8

const (
    PreserveNone Preserved = iota
    PreserveAll
)

func (self Preserved) String() string {
    switch self {
        case PreserveNone : return "none"
        case PreserveAll  : return "all"
        default           : return "???"
    }
}

// Manager computes analyses of a single function on demand and caches them
// until invalidated. Analyses supplied by the caller through the setters
// are returned as-is.
type Manager struct {
    fn    *ir.Func
    dt    *ir.DominatorTree
    loops *LoopInfo
    probs Probabilities
}

func NewManager(fn *ir.Func) *Manager {
    return &Manager { fn: fn }
}

func (self *Manager) Func() *ir.Func {
    return self.fn
}

func (self *Manager) Dominators() *ir.DominatorTree {
    if self.dt == nil {
        self.dt = ir.BuildDominatorTree(self.fn.Entry())
    }
    return self.dt
}

func (self *Manager) Loops() *LoopInfo {
    if self.loops == nil {
        self.loops = ComputeLoops(self.fn, self.Dominators())
    }
    return self.loops
}

func (self *Manager) Probabilities() Probabilities {
    if self.probs == nil {
        self.probs = ComputeProbabilities(self.fn, self.Loops())
    }
    return self.probs
}

func (self *Manager) SetLoops(li *LoopInfo) *Manager {
    self.loops = li
    return self
}

func (self *Manager) SetProbabilities(p Probabilities) *Manager {
    self.probs = p
    return self
}

// Invalidate drops every cached analysis unless all of them are preserved.
func (self *Manager) Invalidate(pa Preserved) {
    if pa != PreserveAll {
        self.dt = nil
        self.loops = nil
        self.probs = nil
    }
}
