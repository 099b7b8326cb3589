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
    `fmt`
    `testing`

    `github.com/brianvoe/gofakeit/v6`
    `github.com/cloudwego/fplicm/analysis`
    `github.com/cloudwego/fplicm/internal/opts`
    `github.com/cloudwego/fplicm/ir`
    `github.com/stretchr/testify/require`
)

const (
    _NumGlobals = 4
    _NumSeeds   = 200
)

// _LoopGen builds random counted loops whose blocks only communicate through
// memory. The globals never alias each other.
type _LoopGen struct {
    f    *gofakeit.Faker
    fn   *ir.Func
    bd   *ir.Builder
    ptrs []ir.ValueID
    iv   ir.ValueID
}

func (self *_LoopGen) weights() []uint32 {
    hi := uint32(self.f.IntRange(80, 99))
    lo := uint32(self.f.IntRange(1, 20))
    switch self.f.IntRange(0, 3) {
        case 0  : return nil
        case 1  : return []uint32 { lo, hi }
        default : return []uint32 { hi, lo }
    }
}

func (self *_LoopGen) ptr() ir.ValueID {
    return self.ptrs[self.f.IntRange(0, len(self.ptrs) - 1)]
}

func (self *_LoopGen) imm() ir.ValueID {
    return self.fn.Const(ir.I64, int64(self.f.IntRange(-8, 8)))
}

// ops fills bb with random loads and stores and returns the values computed
// in it, the induction variable included.
func (self *_LoopGen) ops(bb *ir.BasicBlock) []ir.ValueID {
    vals := []ir.ValueID { self.iv }
    self.bd.SetBlock(bb)

    /* pick a value computed so far */
    pick := func() ir.ValueID {
        return vals[self.f.IntRange(0, len(vals) - 1)]
    }

    /* generate some memory traffic */
    for n := self.f.IntRange(0, 4); n > 0; n-- {
        switch self.f.IntRange(0, 5) {
            case 0, 1, 2: {
                vals = append(vals, self.bd.Load(ir.I64, self.ptr(), 8, false))
            }
            case 3, 4: {
                self.bd.Store(self.bd.Binary(ir.BinAdd, pick(), self.imm()), self.ptr(), 8, false)
            }
            default: {
                self.bd.Store(self.bd.Load(ir.I32, self.ptr(), 4, false), self.ptr(), 4, false)
            }
        }
    }

    /* all done */
    return vals
}

func (self *_LoopGen) cond(vals []ir.ValueID) ir.ValueID {
    v := vals[self.f.IntRange(0, len(vals) - 1)]
    m := self.bd.Binary(ir.BinAnd, v, self.fn.Const(ir.I64, int64(self.f.IntRange(1, 3))))
    return self.bd.Binary(ir.BinNe, m, self.fn.Const(ir.I64, 0))
}

func genLoop(seed int64) *ir.Func {
    f := gofakeit.New(seed)
    fn := ir.NewFunc(fmt.Sprintf("loop_%d", seed))
    gen := &_LoopGen { f: f, fn: fn, bd: ir.NewBuilder(fn) }
    n := fn.Param("n", ir.I64)

    /* create the blocks */
    entry := fn.NewBlock("entry")
    header := fn.NewBlock("header")
    body := make([]*ir.BasicBlock, f.IntRange(1, 5))
    for i := range body {
        body[i] = fn.NewBlock(fmt.Sprintf("b%d", i))
    }
    latch := fn.NewBlock("latch")
    exit := fn.NewBlock("exit")

    /* globals, some of them also through a cast */
    gen.bd.SetBlock(entry)
    for i := 0; i < _NumGlobals; i++ {
        p := fn.Global(fmt.Sprintf("g%d", i))
        if gen.ptrs = append(gen.ptrs, p); f.Bool() {
            gen.ptrs = append(gen.ptrs, gen.bd.Bitcast(p))
        }
    }
    gen.bd.Jump(header)

    /* the header counts up to n */
    gen.bd.SetBlock(header)
    gen.iv = gen.bd.Phi(ir.I64)
    gen.bd.Branch(gen.bd.Binary(ir.BinLt, gen.iv, n), body[0], exit, 99, 1)

    /* body blocks only branch forward */
    for i, bb := range body {
        vals := gen.ops(bb)
        next := latch
        if i + 1 < len(body) {
            next = body[i + 1]
        }
        if i + 2 < len(body) && f.Bool() {
            gen.bd.Branch(gen.cond(vals), body[f.IntRange(i + 2, len(body) - 1)], next, gen.weights()...)
        } else {
            gen.bd.Branch(gen.cond(vals), next, latch, gen.weights()...)
        }
    }

    /* the latch bumps the counter */
    gen.ops(latch)
    iv := gen.bd.SetBlock(latch).Binary(ir.BinAdd, gen.iv, fn.Const(ir.I64, 1))
    gen.bd.Jump(header)
    gen.bd.AddIncoming(gen.iv, fn.Const(ir.I64, 0), entry)
    gen.bd.AddIncoming(gen.iv, iv, latch)

    /* the exit block observes the memory */
    rets := make([]ir.ValueID, 0, _NumGlobals)
    gen.bd.SetBlock(exit)
    for i := 0; i < _NumGlobals; i++ {
        rets = append(rets, gen.bd.Load(ir.I64, fn.Global(fmt.Sprintf("g%d", i)), 8, false))
    }
    gen.bd.Return(rets...)
    return fn
}

func emulate(t *testing.T, fn *ir.Func, seed int64) ([]int64, []int64) {
    f := gofakeit.New(seed)
    emu := ir.NewEmulator(fn)
    for i := 0; i < _NumGlobals; i++ {
        emu.Mem[emu.Addr(fmt.Sprintf("g%d", i))] = int64(f.IntRange(-100, 100))
    }
    ret, err := emu.Run(int64(f.IntRange(0, 12)))
    require.NoError(t, err)
    mem := make([]int64, _NumGlobals)
    for i := range mem {
        mem[i] = emu.Mem[emu.Addr(fmt.Sprintf("g%d", i))]
    }
    return ret, mem
}

func TestCorrectness_PreservesSemantics(t *testing.T) {
    changed := 0
    for seed := int64(1); seed <= _NumSeeds; seed++ {
        orig := genLoop(seed)
        opt := genLoop(seed)
        require.NoError(t, ir.Verify(orig))
        res := NewCorrectness(opts.GetDefaultOptions()).Run(opt, analysis.NewManager(opt))
        require.NoError(t, ir.Verify(opt), "seed %d", seed)
        if res.Changed {
            changed++
        }
        ret0, mem0 := emulate(t, orig, seed)
        ret1, mem1 := emulate(t, opt, seed)
        require.Equal(t, ret0, ret1, "seed %d:\n%s", seed, opt)
        require.Equal(t, mem0, mem1, "seed %d:\n%s", seed, opt)
    }
    println(fmt.Sprintf("%d out of %d loops transformed", changed, _NumSeeds))
    require.NotZero(t, changed)
}

func TestCorrectness_FewerReads(t *testing.T) {
    g := newLoopCFG("entry", "header", "hot", "cold", "latch", "exit")
    n := g.fn.Param("n", ir.I64)
    g.jump("entry", "header")

    /* i = phi(0, i + 1), loop while i < n */
    i := g.at("header").Phi(ir.I64)
    g.at("header").Branch(g.at("header").Binary(ir.BinLt, i, n), g.bb["hot"], g.bb["exit"], 99, 1)

    /* hot: acc += *p, every 8th iteration goes through cold */
    x := g.at("hot").Load(ir.I64, g.p, 8, false)
    acc := g.fn.Global("acc")
    g.at("hot").Store(g.at("hot").Binary(ir.BinAdd, g.at("hot").Load(ir.I64, acc, 8, false), x), acc, 8, false)
    m := g.at("hot").Binary(ir.BinAnd, i, g.fn.Const(ir.I64, 7))
    g.at("hot").Branch(g.at("hot").Binary(ir.BinEq, m, g.fn.Const(ir.I64, 7)), g.bb["cold"], g.bb["latch"], 1, 9)
    g.at("cold").Store(g.at("cold").Binary(ir.BinAdd, x, g.fn.Const(ir.I64, 1)), g.p, 8, false)
    g.jump("cold", "latch")
    i1 := g.at("latch").Binary(ir.BinAdd, i, g.fn.Const(ir.I64, 1))
    g.jump("latch", "header")
    g.bd.AddIncoming(i, g.fn.Const(ir.I64, 0), g.bb["entry"])
    g.bd.AddIncoming(i, i1, g.bb["latch"])
    g.at("exit").Return(g.at("exit").Load(ir.I64, acc, 8, false))

    /* run it before the transformation */
    emu := ir.NewEmulator(g.fn)
    emu.Mem[emu.Addr("p")] = 3
    ret0, err := emu.Run(1, 32)
    require.NoError(t, err)
    reads0 := emu.Reads[emu.Addr("p")]

    /* and after */
    res := g.run()
    require.True(t, res.Changed)
    emu = ir.NewEmulator(g.fn)
    emu.Mem[emu.Addr("p")] = 3
    ret1, err := emu.Run(1, 32)
    require.NoError(t, err)
    require.Equal(t, ret0, ret1)
    require.Equal(t, 32, reads0)
    require.Equal(t, 5, emu.Reads[emu.Addr("p")])
}
