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
    `sort`

    `github.com/cloudwego/fplicm/ir`
    `gonum.org/v1/gonum/graph/simple`
    `gonum.org/v1/gonum/graph/topo`
)

type _BlockSet map[*ir.BasicBlock]struct{}

func (self _BlockSet) has(bb *ir.BasicBlock) bool {
    _, ok := self[bb]
    return ok
}

// findIrreducible decomposes the reachable CFG into nested strongly connected
// components. Every component with a single entry is peeled by removing that
// entry and decomposing the rest, a component with several entries is a
// cycle no natural loop can describe.
func findIrreducible(fn *ir.Func) [][]*ir.BasicBlock {
    all := make(_BlockSet)
    fn.PostOrder().ForEach(func(bb *ir.BasicBlock) {
        all[bb] = struct{}{}
    })
    return decompose(fn, all, all, nil)
}

func decompose(fn *ir.Func, reach _BlockSet, set _BlockSet, ret [][]*ir.BasicBlock) [][]*ir.BasicBlock {
    g := simple.NewDirectedGraph()
    m := make(map[int64]*ir.BasicBlock, len(set))

    /* induced subgraph, self edges never make a component larger */
    for bb := range set {
        m[int64(bb.Id)] = bb
        g.AddNode(simple.Node(bb.Id))
    }
    for bb := range set {
        for _, to := range bb.Succs() {
            if to != bb && set.has(to) && !g.HasEdgeFromTo(int64(bb.Id), int64(to.Id)) {
                g.SetEdge(g.NewEdge(simple.Node(bb.Id), simple.Node(to.Id)))
            }
        }
    }

    /* inspect every non-trivial component */
    for _, scc := range topo.TarjanSCC(g) {
        if len(scc) < 2 {
            continue
        }

        /* collect the component */
        comp := make(_BlockSet, len(scc))
        for _, n := range scc {
            comp[m[n.ID()]] = struct{}{}
        }

        /* find the blocks entered from outside the component */
        var entries []*ir.BasicBlock
        for bb := range comp {
            if isEntry(fn, bb, reach, comp) {
                entries = append(entries, bb)
            }
        }

        /* more than one entry, report the region */
        if len(entries) != 1 {
            ret = append(ret, sortBlocks(comp))
            continue
        }

        /* peel off the header and look inside */
        delete(comp, entries[0])
        ret = decompose(fn, reach, comp, ret)
    }

    /* all done */
    return ret
}

func isEntry(fn *ir.Func, bb *ir.BasicBlock, reach _BlockSet, comp _BlockSet) bool {
    if bb == fn.Entry() {
        return true
    }
    for _, p := range bb.Pred {
        if reach.has(p) && !comp.has(p) {
            return true
        }
    }
    return false
}

func sortBlocks(set _BlockSet) []*ir.BasicBlock {
    ret := make([]*ir.BasicBlock, 0, len(set))
    for bb := range set {
        ret = append(ret, bb)
    }
    sort.Slice(ret, func(i int, j int) bool {
        return ret[i].Id < ret[j].Id
    })
    return ret
}
