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

// Package hoist caches loads on the frequent path of a loop in a stack slot
// seeded in the preheader and repaired after every infrequent store.
package hoist

import (
    `github.com/cloudwego/fplicm/analysis`
    `github.com/cloudwego/fplicm/internal/opts`
    `github.com/cloudwego/fplicm/ir`
)

// Correctness rewrites frequent path loads of locations written only on
// the infrequent paths of their loop.
type Correctness struct {
    opts opts.Options
    hot  analysis.Prob
    dbg  *_Debugger
}

func NewCorrectness(o opts.Options) *Correctness {
    return &Correctness {
        opts : o,
        hot  : analysis.NewProb(o.HotNum, o.HotDen),
        dbg  : newDebugger(o),
    }
}

// Run transforms every loop of fn, innermost first. Functions with
// irreducible control flow are left alone.
func (self *Correctness) Run(fn *ir.Func, am *analysis.Manager) Result {
    ret := Result{}
    li := am.Loops()

    /* natural loops do not describe irreducible regions */
    if li.Irreducible() {
        self.dbg.tracef("%s: irreducible control flow, skipped", fn.Name)
        ret.Irreducible = true
        return ret
    }

    /* transform the loops one by one */
    for _, l := range li.Loops() {
        rep := self.runLoop(fn, l, am.Probabilities())
        ret.Loops = append(ret.Loops, rep)
        ret.Changed = ret.Changed || rep.Rewritten != 0
        self.dbg.loop(fn, rep)
    }

    /* dump the result if needed */
    self.dbg.function(fn, &ret)
    return ret
}

func (self *Correctness) runLoop(fn *ir.Func, l *analysis.Loop, probs analysis.Probabilities) *Report {
    pre := l.Preheader()
    rep := &Report { Header: l.Header(), Depth: l.Depth() }

    /* the slots are seeded in the preheader */
    if pre == nil {
        rep.Skipped = SkipNoPreheader
        return rep
    }

    /* find the frequent path */
    fp := FindFrequentPath(l, probs, self.hot, self.opts.MaxHops(l.NumBlocks()))
    rep.Path = fp.Blocks

    /* it must leave the header and come back to it */
    if fp.Len() <= 1 {
        rep.Skipped = SkipNoFrequentPath
        return rep
    } else if !fp.Closed() {
        rep.Skipped = SkipNoBackedge
        return rep
    }

    /* everything else in the loop is infrequent */
    infreq := InfrequentBlocks(l, fp)
    rep.Infrequent = infreq

    /* nothing to cache around */
    if len(infreq) == 0 {
        rep.Skipped = SkipNoInfrequentBlocks
        return rep
    }

    /* index the stores of both partitions */
    fs := IndexStores(fn, fp.Blocks)
    is := IndexStores(fn, infreq)
    sm := NewSlotManager(fn, pre, is)

    /* rewrite the eligible loads */
    for _, bb := range fp.Blocks {
        for _, ld := range bb.Loads() {
            if eligible(fn, l, ld, fs, is, sm) {
                ReplaceLoad(fn, ld, sm.EnsureSlot(ld))
                rep.Rewritten++
            }
        }
    }

    /* record the slots */
    rep.Slots = sm.Slots()
    rep.Repairs = sm.Repairs()

    /* nothing was eligible */
    if rep.Rewritten == 0 {
        rep.Skipped = SkipNoCandidates
    }

    /* all done */
    return rep
}
