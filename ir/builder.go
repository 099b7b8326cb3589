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

// Builder creates instructions at an insertion point. New instructions are
// placed before the anchor instruction, or at the end of the block when
// there is no anchor, so consecutive insertions keep their program order.
type Builder struct {
    fn *Func
    bb *BasicBlock
    at *Instr
}

func NewBuilder(fn *Func) *Builder {
    return &Builder { fn: fn }
}

func (self *Builder) Func() *Func {
    return self.fn
}

func (self *Builder) Block() *BasicBlock {
    return self.bb
}

// SetBlock moves the insertion point to the end of bb, right before its
// terminator if it already has one.
func (self *Builder) SetBlock(bb *BasicBlock) *Builder {
    self.bb = bb
    self.at = nil
    return self
}

// SetInsertBefore moves the insertion point right before p, which may be
// the terminator of its block.
func (self *Builder) SetInsertBefore(p *Instr) *Builder {
    if p.Removed() {
        panic("insertion point is a removed instruction: " + p.String())
    }

    /* terminators are anchored by the block end */
    if p.IsTerminator() {
        self.bb, self.at = p.Block, nil
    } else {
        self.bb, self.at = p.Block, p
    }

    /* chainable */
    return self
}

// SetInsertAfter moves the insertion point right after p.
func (self *Builder) SetInsertAfter(p *Instr) *Builder {
    bb := p.Block
    idx := bb.Index(p)

    /* cannot insert after terminators */
    if idx < 0 || p.IsTerminator() {
        panic("invalid insertion point: " + p.String())
    }

    /* anchor to the next instruction, or the block end */
    if self.bb = bb; idx + 1 < len(bb.Ins) {
        self.at = bb.Ins[idx + 1]
    } else {
        self.at = nil
    }

    /* chainable */
    return self
}

func (self *Builder) insert(p *Instr) *Instr {
    if self.bb == nil {
        panic("builder does not have an insertion block")
    }

    /* phi nodes always go to the block head, after existing ones */
    if p.Op == OpPhi {
        i := 0
        for i < len(self.bb.Ins) && self.bb.Ins[i].Op == OpPhi { i++ }
        self.bb.insertAt(i, p)
        return p
    }

    /* insert at the anchor */
    if self.at == nil {
        self.bb.insertAt(len(self.bb.Ins), p)
    } else {
        self.bb.insertAt(self.bb.Index(self.at), p)
    }

    /* all done */
    return p
}

func (self *Builder) Alloca(ty Type, align uint32) ValueID {
    p := self.fn.newInstr(OpAlloca, ty, Ptr)
    p.Align = align
    return self.insert(p).Out
}

func (self *Builder) Load(ty Type, ptr ValueID, align uint32, volatile bool) ValueID {
    self.checkPtr(ptr)
    p := self.fn.newInstr(OpLoad, ty, ty, ptr)
    p.Align = align
    p.Volatile = volatile
    return self.insert(p).Out
}

func (self *Builder) Store(v ValueID, ptr ValueID, align uint32, volatile bool) *Instr {
    self.checkPtr(ptr)
    p := self.fn.newInstr(OpStore, self.fn.Value(v).Type, Void, v, ptr)
    p.Align = align
    p.Volatile = volatile
    return self.insert(p)
}

func (self *Builder) Bitcast(ptr ValueID) ValueID {
    self.checkPtr(ptr)
    return self.insert(self.fn.newInstr(OpBitcast, Ptr, Ptr, ptr)).Out
}

func (self *Builder) AddrSpaceCast(ptr ValueID, space uint8) ValueID {
    self.checkPtr(ptr)
    p := self.fn.newInstr(OpAddrSpaceCast, Ptr, Ptr, ptr)
    p.AddrSpace = space
    return self.insert(p).Out
}

func (self *Builder) PtrAdd(ptr ValueID, off ValueID) ValueID {
    self.checkPtr(ptr)
    return self.insert(self.fn.newInstr(OpPtrAdd, Ptr, Ptr, ptr, off)).Out
}

func (self *Builder) Binary(op BinaryOp, x ValueID, y ValueID) ValueID {
    ty := self.fn.Value(x).Type

    /* comparisons yield booleans */
    switch op {
        case BinLt, BinEq, BinNe: ty = I1
    }

    /* build the instruction */
    p := self.fn.newInstr(OpBinary, ty, ty, x, y)
    p.Bin = op
    return self.insert(p).Out
}

// Phi creates an empty phi node at the head of the current block. Incoming
// values are attached with AddIncoming, usually after the loop body exists.
func (self *Builder) Phi(ty Type) ValueID {
    return self.insert(self.fn.newInstr(OpPhi, ty, ty)).Out
}

func (self *Builder) AddIncoming(phi ValueID, v ValueID, from *BasicBlock) {
    p := self.fn.Def(phi)
    if p == nil || p.Op != OpPhi {
        panic(fmt.Sprintf("%s is not a phi node", self.fn.Value(phi)))
    }
    self.fn.addArg(p, v)
    p.Incoming = append(p.Incoming, from)
}

func (self *Builder) Jump(to *BasicBlock) *Instr {
    p := self.fn.newInstr(OpJump, Void, Void)
    p.Succ = []*BasicBlock { to }
    self.bb.setTerm(p)
    return p
}

// Branch terminates the block with a two-way branch, optionally annotated
// with the weights of the taken and not-taken edges.
func (self *Builder) Branch(cond ValueID, then *BasicBlock, els *BasicBlock, weights ...uint32) *Instr {
    if len(weights) != 0 && len(weights) != 2 {
        panic("a conditional branch carries either 0 or 2 weights")
    }

    /* build the terminator */
    p := self.fn.newInstr(OpBranch, Void, Void, cond)
    p.Succ = []*BasicBlock { then, els }
    p.Weights = weights
    self.bb.setTerm(p)
    return p
}

// Switch terminates the block with a multi-way branch. The weights, if any,
// are listed default destination first.
func (self *Builder) Switch(v ValueID, def *BasicBlock, cases []int64, dest []*BasicBlock, weights ...uint32) *Instr {
    if len(cases) != len(dest) {
        panic("switch cases and destinations mismatch")
    }

    /* weights cover the default destination as well */
    if len(weights) != 0 && len(weights) != len(dest) + 1 {
        panic("switch weights must cover every destination")
    }

    /* build the terminator */
    p := self.fn.newInstr(OpSwitch, Void, Void, v)
    p.Succ = append([]*BasicBlock { def }, dest...)
    p.Cases = append([]int64(nil), cases...)
    p.Weights = weights
    self.bb.setTerm(p)
    return p
}

func (self *Builder) Return(vals ...ValueID) *Instr {
    p := self.fn.newInstr(OpReturn, Void, Void, vals...)
    self.bb.setTerm(p)
    return p
}

func (self *Builder) checkPtr(v ValueID) {
    if t := self.fn.Value(v).Type; t != Ptr {
        panic(fmt.Sprintf("%s is not a pointer (%s)", self.fn.Value(v), t))
    }
}
