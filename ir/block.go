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

// BasicBlock is a straight-line sequence of instructions closed by exactly
// one terminator. Pred holds one entry per incoming edge, so a block that
// branches twice to the same successor shows up twice.
type BasicBlock struct {
    Id   int
    Name string
    Ins  []*Instr
    Term *Instr
    Pred []*BasicBlock
    fn   *Func
}

func (self *BasicBlock) Func() *Func {
    return self.fn
}

func (self *BasicBlock) String() string {
    return fmt.Sprintf("bb_%d", self.Id)
}

// Succs returns the successors of the block, or nil if the block is not
// terminated yet.
func (self *BasicBlock) Succs() []*BasicBlock {
    if self.Term == nil {
        return nil
    } else {
        return self.Term.Succs()
    }
}

// HasSucc reports whether the block transfers control to bb.
func (self *BasicBlock) HasSucc(bb *BasicBlock) bool {
    for _, p := range self.Succs() {
        if p == bb {
            return true
        }
    }
    return false
}

// UniquePreds returns the predecessors with duplicated edges folded.
func (self *BasicBlock) UniquePreds() []*BasicBlock {
    ret := make([]*BasicBlock, 0, len(self.Pred))
    vis := make(map[*BasicBlock]struct{}, len(self.Pred))

    /* keep the first occurance of every predecessor */
    for _, p := range self.Pred {
        if _, ok := vis[p]; !ok {
            vis[p] = struct{}{}
            ret = append(ret, p)
        }
    }

    /* all done */
    return ret
}

// Index returns the position of p within the block. The terminator sits at
// len(Ins), an instruction from another block yields -1.
func (self *BasicBlock) Index(p *Instr) int {
    if p == self.Term {
        return len(self.Ins)
    }

    /* search the instruction list */
    for i, v := range self.Ins {
        if v == p {
            return i
        }
    }

    /* not found */
    return -1
}

// Loads returns the load instructions of the block in program order.
func (self *BasicBlock) Loads() []*Instr {
    return self.filter(OpLoad)
}

// Stores returns the store instructions of the block in program order.
func (self *BasicBlock) Stores() []*Instr {
    return self.filter(OpStore)
}

func (self *BasicBlock) filter(op Op) (ret []*Instr) {
    for _, v := range self.Ins {
        if v.Op == op {
            ret = append(ret, v)
        }
    }
    return
}

func (self *BasicBlock) insertAt(i int, p *Instr) {
    if i < 0 || i > len(self.Ins) {
        panic(fmt.Sprintf("insert position %d out of range in %s", i, self))
    }

    /* allocate one slot for the new instruction */
    self.Ins = append(self.Ins, nil)
    copy(self.Ins[i + 1:], self.Ins[i:])

    /* attach to this block */
    p.Block = self
    self.Ins[i] = p
}

func (self *BasicBlock) removeAt(i int) {
    self.Ins = append(self.Ins[:i], self.Ins[i + 1:]...)
}

func (self *BasicBlock) setTerm(p *Instr) {
    if self.Term != nil {
        panic(fmt.Sprintf("%s is already terminated", self))
    }

    /* attach the terminator */
    p.Block = self
    self.Term = p

    /* update predecessor lists */
    for _, to := range p.Succ {
        to.Pred = append(to.Pred, self)
    }
}
