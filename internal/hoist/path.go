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

package hoist

import (
    `strings`

    `github.com/cloudwego/fplicm/analysis`
    `github.com/cloudwego/fplicm/ir`
)

// FrequentPath is the most likely walk through a loop, starting at the
// header. Every block appears at most once, in the order it was reached.
type FrequentPath struct {
    Blocks []*ir.BasicBlock
    header *ir.BasicBlock
    set    map[*ir.BasicBlock]struct{}
}

func newFrequentPath(header *ir.BasicBlock) *FrequentPath {
    ret := &FrequentPath {
        header : header,
        set    : make(map[*ir.BasicBlock]struct{}),
    }
    ret.add(header)
    return ret
}

func (self *FrequentPath) add(bb *ir.BasicBlock) {
    if _, ok := self.set[bb]; !ok {
        self.set[bb] = struct{}{}
        self.Blocks = append(self.Blocks, bb)
    }
}

func (self *FrequentPath) Len() int {
    return len(self.Blocks)
}

func (self *FrequentPath) Contains(bb *ir.BasicBlock) bool {
    _, ok := self.set[bb]
    return ok
}

func (self *FrequentPath) Last() *ir.BasicBlock {
    return self.Blocks[len(self.Blocks) - 1]
}

// Closed reports whether the path ends in a block other than the header
// that branches back to the header.
func (self *FrequentPath) Closed() bool {
    last := self.Last()
    return last != self.header && hasBackedge(last, self.header)
}

func (self *FrequentPath) String() string {
    ret := make([]string, 0, len(self.Blocks))
    for _, bb := range self.Blocks {
        ret = append(ret, bb.String())
    }
    return strings.Join(ret, " -> ")
}

func hasBackedge(bb *ir.BasicBlock, header *ir.BasicBlock) bool {
    return bb.HasSucc(header)
}

// FindFrequentPath follows the hot in-loop successor of every block starting
// from the loop header, for at most maxHops steps. The walk stops at the
// first block other than the header that branches back to the header, at a
// block without a hot successor, or when the chosen successor leaves the
// loop or re-enters the header.
func FindFrequentPath(l *analysis.Loop, probs analysis.Probabilities, hot analysis.Prob, maxHops int) *FrequentPath {
    hdr := l.Header()
    ret := newFrequentPath(hdr)

    /* walk the hot successors */
    for curr, hops := hdr, 0; hops < maxHops; hops++ {
        if curr != hdr && hasBackedge(curr, hdr) {
            break
        }

        /* the next block must stay in the loop and must not be the header */
        next := hotSuccessor(curr, l, probs, hot)
        if next == nil || next == hdr || !l.Contains(next) {
            break
        }

        /* blocks reached twice keep their first position */
        ret.add(next)
        curr = next
    }

    /* all done */
    return ret
}

func hotSuccessor(bb *ir.BasicBlock, l *analysis.Loop, probs analysis.Probabilities, hot analysis.Prob) *ir.BasicBlock {
    switch tr := bb.Term; tr.Op {
        case ir.OpJump   : return tr.Succ[0]
        case ir.OpBranch : return firstHot(bb, tr.Succ, l, probs, hot)
        case ir.OpSwitch : return firstHot(bb, tr.Succ, l, probs, hot)
        default          : return nil
    }
}

func firstHot(bb *ir.BasicBlock, succs []*ir.BasicBlock, l *analysis.Loop, probs analysis.Probabilities, hot analysis.Prob) *ir.BasicBlock {
    for _, to := range succs {
        if l.Contains(to) && probs.EdgeProbability(bb, to).GreaterOrEqual(hot) {
            return to
        }
    }
    return nil
}
