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
    `testing`

    `github.com/cloudwego/fplicm/ir`
    `github.com/stretchr/testify/require`
)

func TestProb_Compare(t *testing.T) {
    hot := NewProb(4, 5)
    require.True(t, NewProb(95, 100).GreaterOrEqual(hot))
    require.True(t, NewProb(8, 10).GreaterOrEqual(hot))
    require.False(t, NewProb(79, 100).GreaterOrEqual(hot))
    require.Equal(t, 0, NewProb(1, 2).Cmp(NewProb(2, 4)))
    require.Equal(t, -1, ProbZero.Cmp(ProbOne))
    require.Equal(t, 1, ProbOne.Cmp(NewProb(0xfffffffe, 0xffffffff)))
    require.Equal(t, 0, NewProb(1, 4).Add(NewProb(1, 4)).Cmp(NewProb(1, 2)))
    require.Equal(t, ProbOne, NewProb(2, 3).Add(NewProb(2, 3)))
    require.InDelta(t, 0.8, hot.Float(), 1e-9)
    require.Equal(t, "4/5 (80.00%)", hot.String())
    require.Panics(t, func() { NewProb(1, 0) })
    require.Panics(t, func() { NewProb(2, 1) })
}

func TestProbabilities_Weights(t *testing.T) {
    g := newTestCFG("entry", "header", "a", "b", "exit")
    g.jump("entry", "header")
    g.br("header", "a", "b", 95, 5)
    g.br("a", "header", "exit", 0, 0)
    g.jump("b", "header")
    g.ret("exit")
    ep := ComputeProbabilities(g.fn, g.loops())
    require.Equal(t, 0, ep.EdgeProbability(g.bb["header"], g.bb["a"]).Cmp(NewProb(95, 100)))
    require.Equal(t, 0, ep.EdgeProbability(g.bb["header"], g.bb["b"]).Cmp(NewProb(1, 20)))
    require.Equal(t, ProbOne, ep.EdgeProbability(g.bb["entry"], g.bb["header"]))
    require.Equal(t, ProbZero, ep.EdgeProbability(g.bb["entry"], g.bb["exit"]))

    /* all-zero weights fall back to the loop heuristic */
    require.Equal(t, 0, ep.EdgeProbability(g.bb["a"], g.bb["header"]).Cmp(NewProb(124, 128)))
    require.Equal(t, 0, ep.EdgeProbability(g.bb["a"], g.bb["exit"]).Cmp(NewProb(4, 128)))
}

func TestProbabilities_Uniform(t *testing.T) {
    g := newTestCFG("entry", "l", "r", "exit")
    g.br("entry", "l", "r")
    g.jump("l", "exit")
    g.jump("r", "exit")
    g.ret("exit")
    ep := ComputeProbabilities(g.fn, g.loops())
    require.Equal(t, NewProb(1, 2), ep.EdgeProbability(g.bb["entry"], g.bb["l"]))
    require.Equal(t, NewProb(1, 2), ep.EdgeProbability(g.bb["entry"], g.bb["r"]))
    require.Equal(t, ProbOne, ep.EdgeProbability(g.bb["l"], g.bb["exit"]))
}

func TestProbabilities_SwitchParallelEdges(t *testing.T) {
    g := newTestCFG("entry", "a", "d")
    v := g.fn.Param("v", ir.I32)
    g.bd.SetBlock(g.bb["entry"]).Switch(v, g.bb["d"], []int64 { 1, 2, 3 }, g.blocks("a", "a", "d"), 1, 2, 3, 4)
    g.ret("a")
    g.ret("d")
    ep := ComputeProbabilities(g.fn, g.loops())
    require.Equal(t, 0, ep.EdgeProbability(g.bb["entry"], g.bb["a"]).Cmp(NewProb(1, 2)))
    require.Equal(t, 0, ep.EdgeProbability(g.bb["entry"], g.bb["d"]).Cmp(NewProb(1, 2)))

    /* without weights every edge counts once */
    g = newTestCFG("entry", "a", "d")
    v = g.fn.Param("v", ir.I32)
    g.bd.SetBlock(g.bb["entry"]).Switch(v, g.bb["d"], []int64 { 1, 2 }, g.blocks("a", "a"))
    g.ret("a")
    g.ret("d")
    ep = ComputeProbabilities(g.fn, g.loops())
    require.Equal(t, 0, ep.EdgeProbability(g.bb["entry"], g.bb["a"]).Cmp(NewProb(2, 3)))
    require.Equal(t, 0, ep.EdgeProbability(g.bb["entry"], g.bb["d"]).Cmp(NewProb(1, 3)))
}

func TestProbabilities_Set(t *testing.T) {
    g := newTestCFG("entry", "l", "r")
    g.br("entry", "l", "r")
    g.ret("l")
    g.ret("r")
    ep := NewEdgeProbabilities().Set(g.bb["entry"], g.bb["l"], NewProb(9, 10))
    require.Equal(t, NewProb(9, 10), ep.EdgeProbability(g.bb["entry"], g.bb["l"]))
    require.Equal(t, ProbZero, ep.EdgeProbability(g.bb["entry"], g.bb["r"]))
}

func TestManager_CacheAndInvalidate(t *testing.T) {
    g := newTestCFG("entry", "header", "exit")
    g.jump("entry", "header")
    g.br("header", "header", "exit")
    g.ret("exit")
    am := NewManager(g.fn)
    dt := am.Dominators()
    li := am.Loops()
    pb := am.Probabilities()
    require.Same(t, dt, am.Dominators())
    require.Same(t, li, am.Loops())
    require.Equal(t, pb, am.Probabilities())
    am.Invalidate(PreserveAll)
    require.Same(t, li, am.Loops())
    am.Invalidate(PreserveNone)
    require.NotSame(t, li, am.Loops())
    require.NotSame(t, dt, am.Dominators())

    /* caller supplied analyses */
    ep := NewEdgeProbabilities()
    am.SetProbabilities(ep)
    require.Equal(t, Probabilities(ep), am.Probabilities())
    require.Equal(t, "none", PreserveNone.String())
    require.Equal(t, "all", PreserveAll.String())
}
