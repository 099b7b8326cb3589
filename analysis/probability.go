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

const (
    _LoopTakenWeight = 124
    _LoopExitWeight  = 4
)

// Probabilities answers how likely control flows along a CFG edge.
type Probabilities interface {
    EdgeProbability(from *ir.BasicBlock, to *ir.BasicBlock) Prob
}

// EdgeProbabilities is a table of edge probabilities. Parallel edges between
// the same pair of blocks are merged into one.
type EdgeProbabilities struct {
    edges map[*ir.BasicBlock]map[*ir.BasicBlock]Prob
}

func NewEdgeProbabilities() *EdgeProbabilities {
    return &EdgeProbabilities {
        edges: make(map[*ir.BasicBlock]map[*ir.BasicBlock]Prob),
    }
}

// ComputeProbabilities derives edge probabilities from the terminators of fn.
// Branch weights are used when present. Otherwise a terminator that may both
// stay in and leave its loop sends 124 out of 128 to the edges staying in,
// and every other terminator splits evenly among its edges.
func ComputeProbabilities(fn *ir.Func, li *LoopInfo) *EdgeProbabilities {
    ep := NewEdgeProbabilities()
    for _, bb := range fn.Blocks {
        if bb.Term != nil && len(bb.Term.Succ) != 0 {
            ep.compute(bb, li)
        }
    }
    return ep
}

func (self *EdgeProbabilities) compute(bb *ir.BasicBlock, li *LoopInfo) {
    tr := bb.Term
    ns := len(tr.Succ)

    /* branch weights always win */
    if len(tr.Weights) == ns {
        if self.weighted(bb) {
            return
        }
    }

    /* loop branch heuristic */
    if l := li.LoopFor(bb); l != nil && self.looping(bb, l) {
        return
    }

    /* no information at all */
    for _, to := range tr.Succ {
        self.add(bb, to, ratio(1, uint64(ns)))
    }
}

func (self *EdgeProbabilities) weighted(bb *ir.BasicBlock) bool {
    sum := uint64(0)
    for _, w := range bb.Term.Weights {
        sum += uint64(w)
    }

    /* all zero weights carry no information */
    if sum == 0 {
        return false
    }

    /* every edge takes its share */
    for i, to := range bb.Term.Succ {
        self.add(bb, to, ratio(uint64(bb.Term.Weights[i]), sum))
    }
    return true
}

func (self *EdgeProbabilities) looping(bb *ir.BasicBlock, l *Loop) bool {
    nin := uint64(0)
    nout := uint64(0)

    /* classify the edges */
    for _, to := range bb.Term.Succ {
        if l.Contains(to) {
            nin++
        } else {
            nout++
        }
    }

    /* only applies when both kinds exist */
    if nin == 0 || nout == 0 {
        return false
    }

    /* split the weights */
    for _, to := range bb.Term.Succ {
        if l.Contains(to) {
            self.add(bb, to, ratio(_LoopTakenWeight, (_LoopTakenWeight + _LoopExitWeight) * nin))
        } else {
            self.add(bb, to, ratio(_LoopExitWeight, (_LoopTakenWeight + _LoopExitWeight) * nout))
        }
    }
    return true
}

func (self *EdgeProbabilities) add(from *ir.BasicBlock, to *ir.BasicBlock, p Prob) {
    if m, ok := self.edges[from]; !ok {
        self.edges[from] = map[*ir.BasicBlock]Prob { to: p }
    } else if q, ok := m[to]; ok {
        m[to] = q.Add(p)
    } else {
        m[to] = p
    }
}

// Set overrides the probability of the edge from -> to.
func (self *EdgeProbabilities) Set(from *ir.BasicBlock, to *ir.BasicBlock, p Prob) *EdgeProbabilities {
    if m, ok := self.edges[from]; !ok {
        self.edges[from] = map[*ir.BasicBlock]Prob { to: p }
    } else {
        m[to] = p
    }
    return self
}

// EdgeProbability returns zero for pairs of blocks that are not connected.
func (self *EdgeProbabilities) EdgeProbability(from *ir.BasicBlock, to *ir.BasicBlock) Prob {
    if p, ok := self.edges[from][to]; ok {
        return p
    } else {
        return ProbZero
    }
}
