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

    `github.com/cloudwego/fplicm/ir`
    `github.com/stretchr/testify/require`
)

// twocold builds a loop with two infrequent blocks, "c1" writes @p twice,
// once through a cast, and "c2" writes @p and @q.
func twocold() (*loopCFG, ir.ValueID) {
    g := newLoopCFG("entry", "header", "hot", "c1", "c2", "exit")
    q := g.fn.Global("q")
    c := g.at("entry").Bitcast(g.p)
    g.jump("entry", "header")
    g.br("header", "hot", "c1", 90, 10)
    g.at("hot").Load(ir.I64, g.p, 8, false)
    g.at("hot").Load(ir.I64, c, 8, false)
    g.br("hot", "header", "exit", 95, 5)
    g.at("c1").Store(g.fn.Const(ir.I64, 1), g.p, 8, false)
    g.at("c1").Store(g.fn.Const(ir.I64, 2), c, 8, false)
    g.br("c1", "header", "c2")
    g.at("c2").Store(g.fn.Const(ir.I64, 3), q, 8, false)
    g.at("c2").Store(g.fn.Const(ir.I64, 4), g.p, 8, false)
    g.jump("c2", "header")
    g.ret("exit")
    return g, c
}

func TestStoreIndex(t *testing.T) {
    g, c := twocold()
    q := g.fn.Global("q")
    is := IndexStores(g.fn, g.blocks("c1", "c2"))
    require.Equal(t, []ir.ValueID { g.p, q }, is.Ptrs())
    require.True(t, is.Has(g.p))
    require.False(t, is.Has(c))
    require.Len(t, is.Stores(g.p), 3)
    require.Equal(t, g.bb["c2"].Stores()[:1], is.Stores(q))
    require.Empty(t, IndexStores(g.fn, g.blocks("header", "hot")).Ptrs())
}

func TestSlotManager_Idempotent(t *testing.T) {
    g, _ := twocold()
    lds := g.bb["hot"].Loads()
    sm := NewSlotManager(g.fn, g.bb["entry"], IndexStores(g.fn, g.blocks("c1", "c2")))
    a := sm.EnsureSlot(lds[0])
    b := sm.EnsureSlot(lds[1])
    println(a.String())
    require.Same(t, a, b)
    require.Same(t, a, sm.Lookup(g.p))
    require.Nil(t, sm.Lookup(g.fn.Global("q")))
    require.Equal(t, []*Slot { a }, sm.Slots())
    require.Equal(t, g.p, a.Ptr)
    require.Equal(t, g.p, a.Raw)

    /* one seed after the existing cast */
    entry := g.bb["entry"].Ins
    require.Len(t, entry, 4)
    require.Equal(t, ir.OpBitcast, entry[0].Op)
    require.Equal(t, a.Seed, entry[3])
    require.Equal(t, ir.OpJump, g.bb["entry"].Term.Op)
}

func TestSlotManager_Repairs(t *testing.T) {
    g, _ := twocold()
    lds := g.bb["hot"].Loads()
    sm := NewSlotManager(g.fn, g.bb["entry"], IndexStores(g.fn, g.blocks("c1", "c2")))
    sl := sm.EnsureSlot(lds[0])
    sm.EnsureSlot(lds[1])
    require.Equal(t, 3, sm.Repairs())
    require.Len(t, sl.Repairs, 3)

    /* every store to @p is immediately followed by a repair */
    for _, name := range []string { "c1", "c2" } {
        ins := g.bb[name].Ins
        for i, p := range ins {
            if p.Op == ir.OpStore && g.fn.StripPointerCasts(p.Pointer()) == g.p {
                require.Equal(t, ir.OpLoad, ins[i + 1].Op)
                require.Equal(t, g.p, ins[i + 1].Pointer())
                require.Equal(t, ir.OpStore, ins[i + 2].Op)
                require.Equal(t, sl.Addr, ins[i + 2].Pointer())
                require.Equal(t, ins[i + 1].Out, ins[i + 2].StoredValue())
            }
        }
    }

    /* and nothing else was touched */
    require.Len(t, g.bb["c1"].Ins, 6)
    require.Len(t, g.bb["c2"].Ins, 4)
    require.Equal(t, g.fn.Global("q"), g.bb["c2"].Ins[0].Pointer())
    require.NoError(t, ir.Verify(g.fn))
}

func TestSlotManager_ThroughPass(t *testing.T) {
    g, _ := twocold()
    res := g.run()
    require.NoError(t, ir.Verify(g.fn))
    rep := res.Loops[0]
    require.Equal(t, 2, rep.Rewritten)
    require.Len(t, rep.Slots, 1)
    require.Equal(t, 3, rep.Repairs)
    require.Equal(t, g.blocks("c1", "c2"), rep.Infrequent)
    for _, ld := range g.bb["hot"].Loads() {
        require.Equal(t, rep.Slots[0].Addr, ld.Pointer())
    }
}

func TestReplaceLoad(t *testing.T) {
    g := hotcold()
    ld := g.bb["hot"].Loads()[0]
    sm := NewSlotManager(g.fn, g.bb["entry"], IndexStores(g.fn, g.blocks("cold")))
    sl := sm.EnsureSlot(ld)
    nl := ReplaceLoad(g.fn, ld, sl)
    require.True(t, ld.Removed())
    require.Equal(t, g.bb["hot"], nl.Block)
    require.Equal(t, 0, g.bb["hot"].Index(nl))
    require.Equal(t, sl.Addr, nl.Pointer())
    require.Equal(t, ld.Type, nl.Type)
    require.Equal(t, ld.Align, nl.Align)
    require.Equal(t, 1, g.fn.Value(nl.Out).NumUses())
    require.Panics(t, func() { g.fn.Remove(ld) })
}
