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
    `testing`

    `github.com/cloudwego/fplicm/analysis`
    `github.com/cloudwego/fplicm/internal/opts`
    `github.com/cloudwego/fplicm/ir`
    `github.com/davecgh/go-spew/spew`
    `github.com/stretchr/testify/require`
)

type loopCFG struct {
    fn *ir.Func
    bd *ir.Builder
    bb map[string]*ir.BasicBlock
    c  ir.ValueID
    p  ir.ValueID
}

func newLoopCFG(names ...string) *loopCFG {
    fn := ir.NewFunc("test")
    ret := &loopCFG {
        fn : fn,
        bd : ir.NewBuilder(fn),
        bb : make(map[string]*ir.BasicBlock),
        c  : fn.Param("c", ir.I1),
        p  : fn.Global("p"),
    }
    for _, name := range names {
        ret.bb[name] = fn.NewBlock(name)
    }
    return ret
}

func (self *loopCFG) at(name string) *ir.Builder {
    return self.bd.SetBlock(self.bb[name])
}

func (self *loopCFG) jump(from string, to string) {
    self.at(from).Jump(self.bb[to])
}

func (self *loopCFG) br(from string, then string, els string, weights ...uint32) {
    self.at(from).Branch(self.c, self.bb[then], self.bb[els], weights...)
}

func (self *loopCFG) ret(from string) {
    self.at(from).Return()
}

func (self *loopCFG) blocks(names ...string) []*ir.BasicBlock {
    ret := make([]*ir.BasicBlock, 0, len(names))
    for _, name := range names {
        ret = append(ret, self.bb[name])
    }
    return ret
}

func (self *loopCFG) run() Result {
    return NewCorrectness(opts.GetDefaultOptions()).Run(self.fn, analysis.NewManager(self.fn))
}

func (self *loopCFG) loop() *analysis.Loop {
    return analysis.NewManager(self.fn).Loops().Loops()[0]
}

func (self *loopCFG) loopAt(header string) *analysis.Loop {
    for _, l := range analysis.NewManager(self.fn).Loops().Loops() {
        if l.Header() == self.bb[header] {
            return l
        }
    }
    panic("no loop at " + header)
}

// hotcold builds a loop whose header goes to "hot" 95% of the time and to
// "cold" otherwise. "hot" reads @p and branches back, "cold" writes @p.
func hotcold() *loopCFG {
    g := newLoopCFG("entry", "header", "hot", "cold", "exit")
    g.jump("entry", "header")
    g.br("header", "hot", "cold", 95, 5)
    x := g.at("hot").Load(ir.I64, g.p, 8, false)
    g.at("hot").Store(x, g.fn.Global("q"), 8, false)
    g.br("hot", "header", "exit", 99, 1)
    g.at("cold").Store(g.fn.Const(ir.I64, 1), g.p, 8, false)
    g.jump("cold", "header")
    g.ret("exit")
    return g
}

func TestCorrectness_HotCold(t *testing.T) {
    g := hotcold()
    ld := g.bb["hot"].Loads()[0]
    st := g.bb["hot"].Stores()[0]
    res := g.run()
    println(g.fn.String())
    spew.Dump(res.Loops)
    require.NoError(t, ir.Verify(g.fn))
    require.True(t, res.Changed)
    require.Len(t, res.Loops, 1)

    /* frequent path and partition */
    rep := res.Loops[0]
    require.Equal(t, NotSkipped, rep.Skipped)
    require.Equal(t, g.blocks("header", "hot"), rep.Path)
    require.Equal(t, g.blocks("cold"), rep.Infrequent)
    require.Equal(t, 1, rep.Rewritten)
    require.Equal(t, 1, rep.Repairs)
    require.Len(t, rep.Slots, 1)

    /* the slot is seeded in the preheader */
    sl := rep.Slots[0]
    entry := g.bb["entry"].Ins
    require.Len(t, entry, 3)
    require.Equal(t, ir.OpAlloca, entry[0].Op)
    require.Equal(t, sl.Addr, entry[0].Out)
    require.Equal(t, ir.OpLoad, entry[1].Op)
    require.Equal(t, []ir.ValueID { g.p }, entry[1].Args)
    require.Equal(t, sl.Seed, entry[2])
    require.Equal(t, []ir.ValueID { entry[1].Out, sl.Addr }, entry[2].Args)

    /* and repaired right after the cold store */
    cold := g.bb["cold"].Ins
    require.Len(t, cold, 3)
    require.Equal(t, ir.OpStore, cold[0].Op)
    require.Equal(t, ir.OpLoad, cold[1].Op)
    require.Equal(t, []ir.ValueID { g.p }, cold[1].Args)
    require.Equal(t, []*ir.Instr { cold[2] }, sl.Repairs)
    require.Equal(t, []ir.ValueID { cold[1].Out, sl.Addr }, cold[2].Args)

    /* the hot load reads the slot */
    require.True(t, ld.Removed())
    hot := g.bb["hot"].Loads()
    require.Len(t, hot, 1)
    require.Equal(t, sl.Addr, hot[0].Pointer())
    require.Equal(t, hot[0].Out, st.StoredValue())
}

func TestCorrectness_StoreOnFrequentPath(t *testing.T) {
    g := hotcold()
    g.at("hot").Store(g.fn.Const(ir.I64, 2), g.p, 8, false)
    ld := g.bb["hot"].Loads()[0]
    res := g.run()
    require.False(t, res.Changed)
    require.Equal(t, SkipNoCandidates, res.Loops[0].Skipped)
    require.False(t, ld.Removed())
    require.Empty(t, g.bb["entry"].Ins)
    require.Len(t, g.bb["cold"].Ins, 1)
}

func TestCorrectness_StoreThroughCastOnFrequentPath(t *testing.T) {
    g := hotcold()
    c := g.at("entry").Bitcast(g.p)
    g.at("hot").Store(g.fn.Const(ir.I64, 2), g.at("hot").AddrSpaceCast(c, 1), 8, false)
    res := g.run()
    require.False(t, res.Changed)
    require.Equal(t, SkipNoCandidates, res.Loops[0].Skipped)
}

func TestCorrectness_NoHotSuccessor(t *testing.T) {
    g := newLoopCFG("entry", "header", "a", "b", "exit")
    g.jump("entry", "header")
    g.br("header", "a", "b", 50, 50)
    g.at("a").Load(ir.I64, g.p, 8, false)
    g.br("a", "header", "exit")
    g.at("b").Store(g.fn.Const(ir.I64, 1), g.p, 8, false)
    g.br("b", "header", "exit")
    g.ret("exit")
    res := g.run()
    require.False(t, res.Changed)
    require.Equal(t, SkipNoFrequentPath, res.Loops[0].Skipped)
    require.Equal(t, g.blocks("header"), res.Loops[0].Path)
}

func TestCorrectness_NoPreheader(t *testing.T) {
    g := newLoopCFG("entry", "header", "hot", "cold", "exit")
    g.br("entry", "header", "exit")
    g.br("header", "hot", "cold", 95, 5)
    g.at("hot").Load(ir.I64, g.p, 8, false)
    g.jump("hot", "header")
    g.at("cold").Store(g.fn.Const(ir.I64, 1), g.p, 8, false)
    g.br("cold", "header", "exit")
    g.ret("exit")
    res := g.run()
    require.False(t, res.Changed)
    require.Equal(t, SkipNoPreheader, res.Loops[0].Skipped)
    require.Empty(t, res.Loops[0].Path)
}

func TestCorrectness_PathCoversLoop(t *testing.T) {
    g := newLoopCFG("entry", "header", "body", "exit")
    g.jump("entry", "header")
    g.br("header", "body", "exit", 99, 1)
    g.at("body").Load(ir.I64, g.p, 8, false)
    g.jump("body", "header")
    g.ret("exit")
    res := g.run()
    require.False(t, res.Changed)
    require.Equal(t, SkipNoInfrequentBlocks, res.Loops[0].Skipped)
    require.Equal(t, g.blocks("header", "body"), res.Loops[0].Path)
}

func TestCorrectness_NotStoredInLoop(t *testing.T) {
    g := hotcold()
    g.at("hot").Load(ir.I64, g.fn.Global("r"), 8, false)
    res := g.run()
    require.True(t, res.Changed)
    require.Equal(t, 1, res.Loops[0].Rewritten)
    require.Len(t, g.bb["hot"].Loads(), 2)
    require.Equal(t, g.fn.Global("r"), g.bb["hot"].Loads()[1].Pointer())
}

func TestCorrectness_PointerDefinedInLoop(t *testing.T) {
    g := newLoopCFG("entry", "header", "hot", "cold", "exit")
    g.jump("entry", "header")
    q := g.at("header").PtrAdd(g.p, g.fn.Const(ir.I64, 8))
    g.br("header", "hot", "cold", 95, 5)
    g.at("hot").Load(ir.I64, q, 8, false)
    g.jump("hot", "header")
    g.at("cold").Store(g.fn.Const(ir.I64, 1), q, 8, false)
    g.br("cold", "header", "exit")
    g.ret("exit")
    res := g.run()
    require.False(t, res.Changed)
    require.Equal(t, SkipNoCandidates, res.Loops[0].Skipped)
}

func TestCorrectness_RawPointerDefinedInLoop(t *testing.T) {
    g := hotcold()
    r := g.at("hot").Bitcast(g.p)
    g.at("hot").Load(ir.I64, r, 8, false)
    res := g.run()
    require.NoError(t, ir.Verify(g.fn))
    require.Equal(t, 1, res.Loops[0].Rewritten)
    require.Len(t, g.bb["hot"].Loads(), 2)
    require.Equal(t, r, g.bb["hot"].Loads()[1].Pointer())
}

func TestCorrectness_MismatchedAccess(t *testing.T) {
    g := hotcold()
    c := g.at("entry").Bitcast(g.p)
    g.at("hot").Load(ir.I32, c, 4, false)
    g.at("hot").Load(ir.I64, c, 8, true)
    g.at("hot").Load(ir.I64, c, 8, false)
    res := g.run()
    require.NoError(t, ir.Verify(g.fn))
    rep := res.Loops[0]
    require.Equal(t, 2, rep.Rewritten)
    require.Len(t, rep.Slots, 1)
    require.Equal(t, ir.I64, rep.Slots[0].Type)
    lds := g.bb["hot"].Loads()
    require.Len(t, lds, 4)
    require.Equal(t, rep.Slots[0].Addr, lds[0].Pointer())
    require.Equal(t, c, lds[1].Pointer())
    require.Equal(t, c, lds[2].Pointer())
    require.Equal(t, rep.Slots[0].Addr, lds[3].Pointer())
}

func TestCorrectness_KeepsLoadAttributes(t *testing.T) {
    g := hotcold()
    r := g.fn.Global("r")
    g.at("hot").Load(ir.I16, r, 2, true)
    g.at("cold").Store(g.fn.Const(ir.I16, 3), r, 2, false)
    res := g.run()
    require.Equal(t, 2, res.Loops[0].Rewritten)
    ld := g.bb["hot"].Loads()[1]
    require.Equal(t, ir.I16, ld.Type)
    require.Equal(t, uint32(2), ld.Align)
    require.True(t, ld.Volatile)
    sl := res.Loops[0].Slots[1]
    require.Equal(t, sl.Addr, ld.Pointer())
    require.True(t, g.fn.Def(sl.Seed.StoredValue()).Volatile)
}

func TestCorrectness_UsesRedirected(t *testing.T) {
    g := hotcold()
    ld := g.bb["hot"].Loads()[0]
    y := g.at("hot").Binary(ir.BinAdd, ld.Out, ld.Out)
    g.at("hot").Store(y, g.fn.Global("q"), 8, false)
    res := g.run()
    require.True(t, res.Changed)
    require.True(t, ld.Removed())
    require.Equal(t, 0, g.fn.Value(ld.Out).NumUses())
    nv := g.bb["hot"].Loads()[0].Out
    require.Equal(t, []ir.ValueID { nv, nv }, g.fn.Def(y).Args)
    require.Equal(t, 3, g.fn.Value(nv).NumUses())
    for _, bb := range g.fn.Blocks {
        for _, p := range bb.Ins {
            require.NotContains(t, p.Args, ld.Out)
        }
    }
    require.NoError(t, ir.Verify(g.fn))
}

func TestCorrectness_SwitchPath(t *testing.T) {
    g := newLoopCFG("entry", "header", "a", "b", "d", "exit")
    v := g.fn.Param("v", ir.I32)
    g.jump("entry", "header")
    g.at("header").Switch(v, g.bb["d"], []int64 { 1, 2 }, g.blocks("a", "b"), 5, 90, 5)
    g.at("a").Load(ir.I64, g.p, 8, false)
    g.jump("a", "header")
    g.at("b").Store(g.fn.Const(ir.I64, 1), g.p, 8, false)
    g.jump("b", "header")
    g.br("d", "header", "exit")
    g.ret("exit")
    res := g.run()
    rep := res.Loops[0]
    require.True(t, res.Changed)
    require.Equal(t, g.blocks("header", "a"), rep.Path)
    require.Equal(t, g.blocks("b", "d"), rep.Infrequent)
    require.Equal(t, 1, rep.Repairs)
    require.NoError(t, ir.Verify(g.fn))
}

func TestCorrectness_Irreducible(t *testing.T) {
    g := newLoopCFG("entry", "header", "hot", "cold", "x", "y", "exit")
    g.br("entry", "x", "header")
    g.jump("x", "y")
    g.br("y", "x", "exit")
    g.br("header", "hot", "cold", 95, 5)
    g.at("hot").Load(ir.I64, g.p, 8, false)
    g.br("hot", "header", "y")
    g.at("cold").Store(g.fn.Const(ir.I64, 1), g.p, 8, false)
    g.jump("cold", "header")
    g.ret("exit")
    res := g.run()
    require.True(t, res.Irreducible)
    require.False(t, res.Changed)
    require.Empty(t, res.Loops)
}

func TestCorrectness_NestedInnermostFirst(t *testing.T) {
    g := newLoopCFG("entry", "oh", "pre", "ih", "hot", "cold", "ol", "exit")
    g.jump("entry", "oh")
    g.br("oh", "pre", "exit", 99, 1)
    g.jump("pre", "ih")
    g.br("ih", "hot", "cold", 95, 5)
    g.at("hot").Load(ir.I64, g.p, 8, false)
    g.br("hot", "ih", "ol", 90, 10)
    g.at("cold").Store(g.fn.Const(ir.I64, 1), g.p, 8, false)
    g.jump("cold", "ih")
    g.jump("ol", "oh")
    g.ret("exit")
    res := g.run()
    require.NoError(t, ir.Verify(g.fn))
    require.Len(t, res.Loops, 2)
    require.Equal(t, g.bb["ih"], res.Loops[0].Header)
    require.Equal(t, 2, res.Loops[0].Depth)
    require.Equal(t, g.bb["oh"], res.Loops[1].Header)
    require.Equal(t, NotSkipped, res.Loops[0].Skipped)
    require.Len(t, g.bb["pre"].Ins, 3)
}

func TestPerformance_NoChange(t *testing.T) {
    g := hotcold()
    before := g.fn.String()
    res := NewPerformance(opts.GetDefaultOptions()).Run(g.fn, analysis.NewManager(g.fn))
    require.False(t, res.Changed)
    require.Len(t, res.Loops, 1)
    require.Equal(t, SkipAnalysisOnly, res.Loops[0].Skipped)
    require.Equal(t, g.blocks("header", "hot"), res.Loops[0].Path)
    require.Equal(t, before, g.fn.String())
}
