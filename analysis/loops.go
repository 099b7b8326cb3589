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
    `fmt`
    `sort`
    `strings`

    `github.com/cloudwego/fplicm/ir`
    `github.com/oleiade/lane`
)

// Loop is a natural loop: a header dominating every member block, and one
// or more latches branching back to the header.
type Loop struct {
    header    *ir.BasicBlock
    preheader *ir.BasicBlock
    latches   []*ir.BasicBlock
    blocks    []*ir.BasicBlock
    set       map[*ir.BasicBlock]struct{}
    outer     *Loop
    inner     []*Loop
    depth     int
}

// NewLoop describes a loop computed elsewhere. The header must be listed in
// blocks, preheader may be nil if the loop has none.
func NewLoop(header *ir.BasicBlock, preheader *ir.BasicBlock, blocks []*ir.BasicBlock) *Loop {
    l := &Loop {
        header    : header,
        preheader : preheader,
        depth     : 1,
    }

    /* header always comes first */
    l.add(header)
    for _, bb := range blocks {
        l.add(bb)
    }

    /* latches are the members branching back to the header */
    for _, bb := range l.blocks {
        if bb.HasSucc(header) {
            l.latches = append(l.latches, bb)
        }
    }

    /* all done */
    return l
}

func (self *Loop) add(bb *ir.BasicBlock) {
    if self.set == nil {
        self.set = make(map[*ir.BasicBlock]struct{})
    }
    if _, ok := self.set[bb]; !ok {
        self.set[bb] = struct{}{}
        self.blocks = append(self.blocks, bb)
    }
}

func (self *Loop) Header() *ir.BasicBlock {
    return self.header
}

// Preheader returns the unique block outside the loop through which every
// entry into the header flows, or nil if there is no such block.
func (self *Loop) Preheader() *ir.BasicBlock {
    return self.preheader
}

// Blocks returns the member blocks, header first.
func (self *Loop) Blocks() []*ir.BasicBlock {
    return self.blocks
}

func (self *Loop) NumBlocks() int {
    return len(self.blocks)
}

func (self *Loop) Contains(bb *ir.BasicBlock) bool {
    _, ok := self.set[bb]
    return ok
}

func (self *Loop) Latches() []*ir.BasicBlock {
    return self.latches
}

func (self *Loop) Outer() *Loop {
    return self.outer
}

func (self *Loop) Inner() []*Loop {
    return self.inner
}

// Depth is 1 for outermost loops.
func (self *Loop) Depth() int {
    return self.depth
}

func (self *Loop) String() string {
    ret := make([]string, 0, len(self.blocks))
    for _, bb := range self.blocks {
        ret = append(ret, bb.String())
    }
    return fmt.Sprintf("loop(%s) {%s}", self.header, strings.Join(ret, ", "))
}

// LoopInfo is the loop nest of a function.
type LoopInfo struct {
    loops       []*Loop
    top         []*Loop
    b2l         map[*ir.BasicBlock]*Loop
    irreducible [][]*ir.BasicBlock
}

// NewLoopInfo builds a loop nest out of loops computed elsewhere, nesting
// them by containment.
func NewLoopInfo(loops ...*Loop) *LoopInfo {
    li := &LoopInfo { b2l: make(map[*ir.BasicBlock]*Loop) }
    li.nest(loops)
    return li
}

// ComputeLoops finds the natural loops of fn. A back edge is an edge b -> h
// where h dominates b; back edges sharing a header form a single loop.
func ComputeLoops(fn *ir.Func, dt *ir.DominatorTree) *LoopInfo {
    var loops []*Loop

    /* visit headers in reverse post-order for a stable result */
    fn.ReversePostOrder(func(h *ir.BasicBlock) {
        var latches []*ir.BasicBlock

        /* find all the back edges into h */
        for _, p := range h.UniquePreds() {
            if dt.Reachable(p) && dt.Dominates(h, p) {
                latches = append(latches, p)
            }
        }

        /* not a loop header */
        if len(latches) == 0 {
            return
        }

        /* collect the body and add the loop */
        l := naturalLoop(fn, dt, h, latches)
        l.preheader = findPreheader(dt, l)
        loops = append(loops, l)
    })

    /* build the loop nest */
    li := &LoopInfo { b2l: make(map[*ir.BasicBlock]*Loop) }
    li.nest(loops)
    li.irreducible = findIrreducible(fn)
    return li
}

func naturalLoop(fn *ir.Func, dt *ir.DominatorTree, h *ir.BasicBlock, latches []*ir.BasicBlock) *Loop {
    s := lane.NewStack()
    v := map[*ir.BasicBlock]struct{} { h: {} }

    /* walk backwards from every latch, stopping at the header */
    for _, p := range latches {
        if _, ok := v[p]; !ok {
            v[p] = struct{}{}
            s.Push(p)
        }
    }

    /* reverse depth-first search */
    for !s.Empty() {
        p := s.Pop().(*ir.BasicBlock)
        for _, q := range p.UniquePreds() {
            if _, ok := v[q]; !ok && dt.Reachable(q) {
                v[q] = struct{}{}
                s.Push(q)
            }
        }
    }

    /* header first, then members in block order */
    l := &Loop { header: h, latches: latches }
    l.add(h)
    for _, bb := range fn.Blocks {
        if _, ok := v[bb]; ok {
            l.add(bb)
        }
    }

    /* all done */
    return l
}

// findPreheader returns the only reachable predecessor of the header outside
// the loop, provided the header is its only successor.
func findPreheader(dt *ir.DominatorTree, l *Loop) *ir.BasicBlock {
    var pre *ir.BasicBlock

    /* look for the entering block */
    for _, p := range l.header.UniquePreds() {
        if !l.Contains(p) && dt.Reachable(p) {
            if pre != nil {
                return nil
            }
            pre = p
        }
    }

    /* the entering block must not branch elsewhere */
    if pre != nil {
        for _, s := range pre.Succs() {
            if s != l.header {
                return nil
            }
        }
    }

    /* all checks passed */
    return pre
}

func (self *LoopInfo) nest(loops []*Loop) {
    sorted := append([]*Loop(nil), loops...)

    /* smaller loops first, so the innermost loop wins every block */
    sort.SliceStable(sorted, func(i int, j int) bool {
        return len(sorted[i].blocks) < len(sorted[j].blocks)
    })

    /* the parent is the smallest larger loop containing the header */
    for i, l := range sorted {
        l.outer, l.inner = nil, nil
        for _, o := range sorted[i + 1:] {
            if o != l && len(o.blocks) > len(l.blocks) && o.Contains(l.header) {
                l.outer = o
                break
            }
        }
    }

    /* link children and find the top level */
    for _, l := range loops {
        if l.outer == nil {
            self.top = append(self.top, l)
        } else {
            l.outer.inner = append(l.outer.inner, l)
        }
    }

    /* compute depths and the innermost loop of each block */
    for _, l := range sorted {
        l.depth = 1
        for o := l.outer; o != nil; o = o.outer {
            l.depth++
        }
        for _, bb := range l.blocks {
            if _, ok := self.b2l[bb]; !ok {
                self.b2l[bb] = l
            }
        }
    }

    /* innermost loops first, ties broken by discovery order */
    self.loops = append([]*Loop(nil), loops...)
    sort.SliceStable(self.loops, func(i int, j int) bool {
        return self.loops[i].depth > self.loops[j].depth
    })
}

// Loops returns every loop of the function, innermost first.
func (self *LoopInfo) Loops() []*Loop {
    return self.loops
}

// TopLevel returns the outermost loops.
func (self *LoopInfo) TopLevel() []*Loop {
    return self.top
}

// LoopFor returns the innermost loop containing bb, or nil.
func (self *LoopInfo) LoopFor(bb *ir.BasicBlock) *Loop {
    return self.b2l[bb]
}

// Irreducible reports whether the function has a cycle with more than one
// entry block, which no natural loop describes.
func (self *LoopInfo) Irreducible() bool {
    return len(self.irreducible) != 0
}

// IrreducibleRegions returns the multi-entry cycles found, each as a list of
// blocks ordered by ID.
func (self *LoopInfo) IrreducibleRegions() [][]*ir.BasicBlock {
    return self.irreducible
}
