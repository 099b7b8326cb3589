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

package ir

import (
    `fmt`
)

// VerifyError occures when a function violates a structural invariant of
// the representation.
type VerifyError struct {
    Func   string
    Block  int
    Reason string
}

func (self VerifyError) Error() string {
    if self.Block < 0 {
        return fmt.Sprintf("VerifyError(%s): %s", self.Func, self.Reason)
    } else {
        return fmt.Sprintf("VerifyError(%s, bb_%d): %s", self.Func, self.Block, self.Reason)
    }
}

type _Verifier struct {
    fn *Func
    dt *DominatorTree
}

// Verify checks the structural invariants of fn: every block is terminated,
// predecessor lists mirror the successor edges, use lists mirror operands,
// no operand refers to a removed instruction, and every use is dominated by
// its definition.
func Verify(fn *Func) error {
    if fn.Entry() == nil {
        return VerifyError { fn.Name, -1, "function has no blocks" }
    }

    /* build the verifier */
    vf := &_Verifier {
        fn: fn,
        dt: BuildDominatorTree(fn.Entry()),
    }

    /* check the control flow first, dominance depends on it */
    if err := vf.edges(); err != nil {
        return err
    }

    /* then the use lists */
    if err := vf.uses(); err != nil {
        return err
    }

    /* and finally the dominance property */
    return vf.dominance()
}

func (self *_Verifier) fail(bb *BasicBlock, format string, args ...interface{}) error {
    if bb == nil {
        return VerifyError { self.fn.Name, -1, fmt.Sprintf(format, args...) }
    } else {
        return VerifyError { self.fn.Name, bb.Id, fmt.Sprintf(format, args...) }
    }
}

func (self *_Verifier) edges() error {
    count := make(map[[2]int]int)

    /* every block must terminate, count every edge */
    for _, bb := range self.fn.Blocks {
        if bb.Term == nil {
            return self.fail(bb, "block is not terminated")
        }
        for _, p := range bb.Ins {
            if p.IsTerminator() {
                return self.fail(bb, "terminator %q in the middle of the block", p)
            } else if p.Block != bb {
                return self.fail(bb, "instruction %q does not point back to its block", p)
            }
        }
        for _, to := range bb.Succs() {
            count[[2]int { bb.Id, to.Id }]++
        }
    }

    /* predecessor lists must match exactly */
    for _, bb := range self.fn.Blocks {
        for _, p := range bb.Pred {
            count[[2]int { p.Id, bb.Id }]--
        }
    }

    /* report the first mismatch */
    for _, bb := range self.fn.Blocks {
        for _, to := range bb.Succs() {
            if n := count[[2]int { bb.Id, to.Id }]; n != 0 {
                return self.fail(to, "predecessor list mismatch for edge %s -> %s", bb, to)
            }
        }
        for _, p := range bb.Pred {
            if n := count[[2]int { p.Id, bb.Id }]; n != 0 {
                return self.fail(bb, "predecessor %s without a matching edge", p)
            }
        }
    }

    /* all the edges are consistent */
    return nil
}

func (self *_Verifier) uses() error {
    live := 0

    /* every operand must be recorded in the use list of its value */
    for _, p := range self.fn.instrs {
        if p == nil {
            continue
        }
        live++
        for i, v := range p.Args {
            if d := self.fn.Value(v); d.Kind == KindInstr && self.fn.instrs[d.Def] == nil {
                return self.fail(p.Block, "%q refers to a removed instruction", p)
            } else if !hasUse(d, Use { p.Id, i }) {
                return self.fail(p.Block, "operand %d of %q is missing from the use list", i, p)
            }
        }
    }

    /* every use must point at a live instruction holding the value */
    for _, v := range self.fn.values {
        for _, u := range v.uses {
            if p := self.fn.instrs[u.User]; p == nil {
                return self.fail(nil, "%s is used by removed instruction %d", v, u.User)
            } else if u.Slot >= len(p.Args) || p.Args[u.Slot] != v.Id {
                return self.fail(p.Block, "stale use of %s by %q", v, p)
            }
        }
    }

    /* all instructions must be attached to some block */
    for _, bb := range self.fn.Blocks {
        live -= len(bb.Ins) + 1
    }

    /* count mismatch means an orphaned instruction */
    if live != 0 {
        return self.fail(nil, "%d instructions are not attached to any block", live)
    }

    /* all the uses are consistent */
    return nil
}

func (self *_Verifier) dominance() error {
    for _, bb := range self.fn.Blocks {
        if !self.dt.Reachable(bb) {
            continue
        }
        for i, p := range bb.Ins {
            if err := self.dominated(p, i); err != nil {
                return err
            }
        }
        if err := self.dominated(bb.Term, len(bb.Ins)); err != nil {
            return err
        }
    }
    return nil
}

func (self *_Verifier) dominated(p *Instr, pos int) error {
    for i, v := range p.Args {
        d := self.fn.Def(v)

        /* parameters, globals and constants dominate everything */
        if d == nil {
            continue
        }

        /* phi operands are used at the end of the incoming block */
        if p.Op == OpPhi {
            if in := p.Incoming[i]; !self.dt.Dominates(d.Block, in) {
                return self.fail(p.Block, "%q is not dominated by %q along %s", p, d, in)
            }
            continue
        }

        /* same block, the definition must come first */
        if d.Block == p.Block {
            if p.Block.Index(d) >= pos {
                return self.fail(p.Block, "%q uses %q before its definition", p, d)
            }
            continue
        }

        /* different blocks, the defining block must dominate */
        if !self.dt.StrictlyDominates(d.Block, p.Block) {
            return self.fail(p.Block, "%q is not dominated by %q", p, d)
        }
    }
    return nil
}

func hasUse(v *Value, u Use) bool {
    for _, x := range v.uses {
        if x == u {
            return true
        }
    }
    return false
}
