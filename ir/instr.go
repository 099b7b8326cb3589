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
    `strings`
)

type Op uint8

const (
    OpAlloca Op = iota
    OpLoad
    OpStore
    OpBitcast
    OpAddrSpaceCast
    OpPtrAdd
    OpBinary
    OpPhi
    OpJump
    OpBranch
    OpSwitch
    OpReturn
)

func (self Op) String() string {
    switch self {
        case OpAlloca        : return "alloca"
        case OpLoad          : return "load"
        case OpStore         : return "store"
        case OpBitcast       : return "bitcast"
        case OpAddrSpaceCast : return "addrspacecast"
        case OpPtrAdd        : return "ptradd"
        case OpBinary        : return "binary"
        case OpPhi           : return "phi"
        case OpJump          : return "jump"
        case OpBranch        : return "br"
        case OpSwitch        : return "switch"
        case OpReturn        : return "ret"
        default              : panic("unreachable")
    }
}

type BinaryOp uint8

const (
    BinAdd BinaryOp = iota
    BinSub
    BinMul
    BinAnd
    BinXor
    BinLt
    BinEq
    BinNe
)

func (self BinaryOp) String() string {
    switch self {
        case BinAdd : return "+"
        case BinSub : return "-"
        case BinMul : return "*"
        case BinAnd : return "&"
        case BinXor : return "^"
        case BinLt  : return "<"
        case BinEq  : return "=="
        case BinNe  : return "!="
        default     : panic("unreachable")
    }
}

// Instr is a single instruction. The operand layout depends on the opcode:
//
//     alloca                   : no operands, Type is the allocated type
//     load                     : Args = {ptr}
//     store                    : Args = {value, ptr}
//     bitcast / addrspacecast  : Args = {ptr}
//     ptradd                   : Args = {ptr, offset}
//     binary                   : Args = {x, y}
//     phi                      : Args[i] flows in from Incoming[i]
//     jump                     : Succ = {to}
//     br                       : Args = {cond}, Succ = {then, else}
//     switch                   : Args = {value}, Succ = {default, cases...}
//     ret                      : Args = return values
//
// Operands must only be changed through the owning Func, which keeps the
// use lists in sync.
type Instr struct {
    Id        InstrID
    Op        Op
    Block     *BasicBlock
    Args      []ValueID
    Out       ValueID
    Type      Type
    Align     uint32
    Volatile  bool
    AddrSpace uint8
    Bin       BinaryOp
    Incoming  []*BasicBlock
    Succ      []*BasicBlock
    Cases     []int64
    Weights   []uint32
    fn        *Func
}

func (self *Instr) IsTerminator() bool {
    switch self.Op {
        case OpJump, OpBranch, OpSwitch, OpReturn : return true
        default                                   : return false
    }
}

// Succs returns the successors of a terminator, in declaration order. For
// a switch the default destination comes first.
func (self *Instr) Succs() []*BasicBlock {
    return self.Succ
}

// Pointer returns the address operand of a memory instruction.
func (self *Instr) Pointer() ValueID {
    switch self.Op {
        case OpLoad  : return self.Args[0]
        case OpStore : return self.Args[1]
        default      : panic("not a memory instruction: " + self.Op.String())
    }
}

// StoredValue returns the value operand of a store.
func (self *Instr) StoredValue() ValueID {
    if self.Op != OpStore {
        panic("not a store: " + self.Op.String())
    } else {
        return self.Args[0]
    }
}

func (self *Instr) Removed() bool {
    return self.Block == nil
}

func (self *Instr) arg(i int) string {
    return self.fn.Value(self.Args[i]).String()
}

func (self *Instr) out() string {
    return self.fn.Value(self.Out).String()
}

func (self *Instr) flags() string {
    if self.Volatile {
        return fmt.Sprintf(" volatile align %d", self.Align)
    } else {
        return fmt.Sprintf(" align %d", self.Align)
    }
}

func (self *Instr) weights() string {
    nb := len(self.Weights)
    ret := make([]string, 0, nb)

    /* no weights attached */
    if nb == 0 {
        return ""
    }

    /* dump every weight */
    for _, w := range self.Weights {
        ret = append(ret, fmt.Sprintf("%d", w))
    }

    /* join them together */
    return fmt.Sprintf(" !weights(%s)", strings.Join(ret, ", "))
}

func (self *Instr) String() string {
    switch self.Op {
        case OpAlloca        : return fmt.Sprintf("%s = alloca %s, align %d", self.out(), self.Type, self.Align)
        case OpLoad          : return fmt.Sprintf("%s = load.%s %s,%s", self.out(), self.Type, self.arg(0), self.flags())
        case OpStore         : return fmt.Sprintf("store.%s(%s -> *%s),%s", self.Type, self.arg(0), self.arg(1), self.flags())
        case OpBitcast       : return fmt.Sprintf("%s = bitcast %s", self.out(), self.arg(0))
        case OpAddrSpaceCast : return fmt.Sprintf("%s = addrspacecast(%d) %s", self.out(), self.AddrSpace, self.arg(0))
        case OpPtrAdd        : return fmt.Sprintf("%s = &(%s)[%s]", self.out(), self.arg(0), self.arg(1))
        case OpBinary        : return fmt.Sprintf("%s = %s %s %s", self.out(), self.arg(0), self.Bin, self.arg(1))
        case OpPhi           : return self.phiString()
        case OpJump          : return fmt.Sprintf("goto %s", self.Succ[0])
        case OpBranch        : return fmt.Sprintf("br %s, %s, %s%s", self.arg(0), self.Succ[0], self.Succ[1], self.weights())
        case OpSwitch        : return self.switchString()
        case OpReturn        : return self.retString()
        default              : panic("unreachable")
    }
}

func (self *Instr) phiString() string {
    ret := make([]string, 0, len(self.Args))
    for i := range self.Args {
        ret = append(ret, fmt.Sprintf("%s: %s", self.Incoming[i], self.arg(i)))
    }
    return fmt.Sprintf("%s = φ(%s)", self.out(), strings.Join(ret, ", "))
}

func (self *Instr) switchString() string {
    ret := make([]string, 0, len(self.Cases) + 1)

    /* add each case */
    for i, v := range self.Cases {
        ret = append(ret, fmt.Sprintf("  %d => %s,", v, self.Succ[i + 1]))
    }

    /* default branch */
    ret = append(ret, fmt.Sprintf("  _ => %s,", self.Succ[0]))

    /* join them together */
    return fmt.Sprintf(
        "switch %s {\n%s\n}%s",
        self.arg(0),
        strings.Join(ret, "\n"),
        self.weights(),
    )
}

func (self *Instr) retString() string {
    ret := make([]string, 0, len(self.Args))
    for i := range self.Args {
        ret = append(ret, self.arg(i))
    }
    return fmt.Sprintf("ret {%s}", strings.Join(ret, ", "))
}
