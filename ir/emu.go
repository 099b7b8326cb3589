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

const (
    _GlobalBase   = 0x1000
    _GlobalStride = 0x100
    _StackBase    = 0x100000
    _StackStride  = 0x10
)

const (
    _DefaultMaxSteps = 1 << 20
)

// Memory is a word-addressed memory, every address holds one value.
type Memory map[int64]int64

// EmulatorError occures when the emulated function cannot run to completion.
type EmulatorError struct {
    Func   string
    Reason string
}

func (self EmulatorError) Error() string {
    return fmt.Sprintf("EmulatorError(%s): %s", self.Func, self.Reason)
}

// Emulator interprets a function over a flat memory. Globals get fixed
// addresses, allocas are bumped from a separate stack area.
type Emulator struct {
    Mem      Memory
    Reads    map[int64]int
    MaxSteps int
    Steps    int
    fn       *Func
    sp       int64
    regs     map[ValueID]int64
    addr     map[ValueID]int64
}

func NewEmulator(fn *Func) *Emulator {
    emu := &Emulator {
        Mem      : make(Memory),
        Reads    : make(map[int64]int),
        MaxSteps : _DefaultMaxSteps,
        fn       : fn,
        addr     : make(map[ValueID]int64),
    }

    /* assign addresses to the global symbols */
    for i, v := range fn.Globals() {
        emu.addr[v] = _GlobalBase + int64(i) * _GlobalStride
    }

    /* all done */
    return emu
}

// Addr returns the address of the named global symbol.
func (self *Emulator) Addr(name string) int64 {
    if id, ok := self.fn.globals[name]; !ok {
        panic("undefined global symbol: " + name)
    } else {
        return self.addr[id]
    }
}

func (self *Emulator) fail(format string, args ...interface{}) error {
    return EmulatorError {
        Func   : self.fn.Name,
        Reason : fmt.Sprintf(format, args...),
    }
}

func (self *Emulator) value(v ValueID) int64 {
    switch p := self.fn.Value(v); p.Kind {
        case KindConst  : return p.Imm
        case KindGlobal : return self.addr[v]
        default         : return self.regs[v]
    }
}

// Run executes the function with the given arguments and returns the values
// of the first return instruction reached.
func (self *Emulator) Run(args ...int64) ([]int64, error) {
    var prev *BasicBlock
    var next *BasicBlock

    /* check for arguments */
    if len(args) != len(self.fn.Params) {
        return nil, self.fail("expect %d arguments, got %d", len(self.fn.Params), len(args))
    }

    /* reset the registers and the stack */
    self.sp = _StackBase
    self.regs = make(map[ValueID]int64)

    /* bind the parameters */
    for i, v := range self.fn.Params {
        self.regs[v] = self.fn.Value(v).Type.Truncate(args[i])
    }

    /* execute block by block */
    for bb := self.fn.Entry(); bb != nil; prev, bb = bb, next {
        if err := self.tick(); err != nil {
            return nil, err
        }

        /* phi nodes first */
        if err := self.phis(prev, bb); err != nil {
            return nil, err
        }

        /* straight-line part */
        for _, p := range bb.Ins {
            if p.Op != OpPhi {
                if err := self.step(p); err != nil {
                    return nil, err
                }
            }
        }

        /* the terminator decides where to go */
        switch tr := bb.Term; tr.Op {
            case OpJump   : next = tr.Succ[0]
            case OpBranch : next = self.branch(tr)
            case OpSwitch : next = self.dispatch(tr)
            case OpReturn : return self.ret(tr), nil
            default       : return nil, self.fail("invalid terminator %q", tr)
        }
    }

    /* functions without blocks */
    return nil, self.fail("function has no entry block")
}

func (self *Emulator) tick() error {
    if self.Steps++; self.Steps > self.MaxSteps {
        return self.fail("step limit %d exceeded", self.MaxSteps)
    } else {
        return nil
    }
}

func (self *Emulator) phis(prev *BasicBlock, bb *BasicBlock) error {
    vals := make(map[ValueID]int64)

    /* phi nodes read their inputs simultaneously */
    for _, p := range bb.Ins {
        if p.Op != OpPhi {
            break
        }
        if err := self.tick(); err != nil {
            return err
        }
        i := 0
        for i < len(p.Incoming) && p.Incoming[i] != prev { i++ }
        if i == len(p.Incoming) {
            return self.fail("%q has no incoming value from %v", p, prev)
        }
        vals[p.Out] = self.value(p.Args[i])
    }

    /* then commit all of them */
    for k, v := range vals {
        self.regs[k] = v
    }
    return nil
}

func (self *Emulator) step(p *Instr) error {
    if err := self.tick(); err != nil {
        return err
    }

    /* dispatch by opcode */
    switch p.Op {
        case OpAlloca: {
            self.regs[p.Out] = self.sp
            self.sp += _StackStride
        }

        /* *ptr -> out */
        case OpLoad: {
            addr := self.value(p.Args[0])
            self.Reads[addr]++
            self.regs[p.Out] = p.Type.Truncate(self.Mem[addr])
        }

        /* value -> *ptr */
        case OpStore: {
            addr := self.value(p.Args[1])
            self.Mem[addr] = p.Type.Truncate(self.value(p.Args[0]))
        }

        /* pointer conversions do not change the address */
        case OpBitcast, OpAddrSpaceCast: {
            self.regs[p.Out] = self.value(p.Args[0])
        }

        /* ptr + off -> out */
        case OpPtrAdd: {
            self.regs[p.Out] = self.value(p.Args[0]) + self.value(p.Args[1])
        }

        /* x op y -> out */
        case OpBinary: {
            self.regs[p.Out] = p.Type.Truncate(evalbin(p.Bin, self.value(p.Args[0]), self.value(p.Args[1])))
        }

        /* anything else */
        default: {
            return self.fail("cannot execute %q", p)
        }
    }

    /* all done */
    return nil
}

func (self *Emulator) branch(p *Instr) *BasicBlock {
    if self.value(p.Args[0]) != 0 {
        return p.Succ[0]
    } else {
        return p.Succ[1]
    }
}

func (self *Emulator) dispatch(p *Instr) *BasicBlock {
    v := self.value(p.Args[0])
    for i, c := range p.Cases {
        if c == v {
            return p.Succ[i + 1]
        }
    }
    return p.Succ[0]
}

func (self *Emulator) ret(p *Instr) []int64 {
    ret := make([]int64, len(p.Args))
    for i, v := range p.Args {
        ret[i] = self.value(v)
    }
    return ret
}

func evalbin(op BinaryOp, x int64, y int64) int64 {
    switch op {
        case BinAdd : return x + y
        case BinSub : return x - y
        case BinMul : return x * y
        case BinAnd : return x & y
        case BinXor : return x ^ y
        case BinLt  : return b2i(x < y)
        case BinEq  : return b2i(x == y)
        case BinNe  : return b2i(x != y)
        default     : panic("unreachable")
    }
}

func b2i(v bool) int64 {
    if v {
        return 1
    } else {
        return 0
    }
}
