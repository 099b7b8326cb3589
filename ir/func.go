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

type _ConstKey struct {
    t Type
    v int64
}

// Func owns every value and instruction of one function. Values and
// instructions are addressed by index into the owning tables, and all the
// operand mutations go through the Func so the use lists stay exact.
type Func struct {
    Name    string
    Blocks  []*BasicBlock
    Params  []ValueID
    values  []*Value
    instrs  []*Instr
    consts  map[_ConstKey]ValueID
    globals map[string]ValueID
}

func NewFunc(name string) *Func {
    return &Func {
        Name    : name,
        consts  : make(map[_ConstKey]ValueID),
        globals : make(map[string]ValueID),
    }
}

// Entry returns the first block created, which is the function entry.
func (self *Func) Entry() *BasicBlock {
    if len(self.Blocks) == 0 {
        return nil
    } else {
        return self.Blocks[0]
    }
}

func (self *Func) NewBlock(name string) *BasicBlock {
    bb := &BasicBlock {
        Id   : len(self.Blocks),
        Name : name,
        fn   : self,
    }
    self.Blocks = append(self.Blocks, bb)
    return bb
}

func (self *Func) MaxBlock() int {
    return len(self.Blocks)
}

func (self *Func) NumValues() int {
    return len(self.values)
}

func (self *Func) NumInstrs() int {
    return len(self.instrs)
}

// Value resolves a value ID. It panics on IDs not owned by this function.
func (self *Func) Value(id ValueID) *Value {
    if id < 0 || int(id) >= len(self.values) {
        panic(fmt.Sprintf("value %d does not belong to %s", id, self.Name))
    } else {
        return self.values[id]
    }
}

// Instr resolves an instruction ID, returning nil for removed instructions.
func (self *Func) Instr(id InstrID) *Instr {
    if id < 0 || int(id) >= len(self.instrs) {
        panic(fmt.Sprintf("instruction %d does not belong to %s", id, self.Name))
    } else {
        return self.instrs[id]
    }
}

// Def returns the instruction defining v, or nil if v is not an instruction
// result (or its definition has been removed).
func (self *Func) Def(v ValueID) *Instr {
    if p := self.Value(v); p.Kind != KindInstr {
        return nil
    } else {
        return self.instrs[p.Def]
    }
}

func (self *Func) Param(name string, ty Type) ValueID {
    id := self.newValue(KindParam, ty)
    self.values[id].Name = name
    self.Params = append(self.Params, id)
    return id
}

// Global returns the address of the named global symbol, creating it on
// first reference.
func (self *Func) Global(name string) ValueID {
    if id, ok := self.globals[name]; ok {
        return id
    }

    /* create a new symbol */
    id := self.newValue(KindGlobal, Ptr)
    self.values[id].Name = name
    self.globals[name] = id
    return id
}

func (self *Func) Const(ty Type, v int64) ValueID {
    key := _ConstKey { ty, ty.Truncate(v) }
    if id, ok := self.consts[key]; ok {
        return id
    }

    /* create a new constant */
    id := self.newValue(KindConst, ty)
    self.values[id].Imm = key.v
    self.consts[key] = id
    return id
}

// Globals returns the IDs of all referenced global symbols, in creation order.
func (self *Func) Globals() (ret []ValueID) {
    for _, v := range self.values {
        if v.Kind == KindGlobal {
            ret = append(ret, v.Id)
        }
    }
    return
}

// StripPointerCasts follows no-op pointer conversions (bitcast and
// addrspacecast) back to the underlying pointer. It is a syntactic identity,
// two different expressions that happen to alias are not unified.
func (self *Func) StripPointerCasts(v ValueID) ValueID {
    for {
        if p := self.Def(v); p == nil {
            return v
        } else if p.Op != OpBitcast && p.Op != OpAddrSpaceCast {
            return v
        } else {
            v = p.Args[0]
        }
    }
}

// SetArg replaces operand slot of p with v.
func (self *Func) SetArg(p *Instr, slot int, v ValueID) {
    u := Use { p.Id, slot }
    old := p.Args[slot]

    /* nothing to do */
    if old == v {
        return
    }

    /* move the use from the old value to the new one */
    self.Value(old).dropUse(u)
    self.Value(v).addUse(u)
    p.Args[slot] = v
}

// ReplaceAllUsesWith redirects every consumer of old to v.
func (self *Func) ReplaceAllUsesWith(old ValueID, v ValueID) {
    if old == v {
        panic("ReplaceAllUsesWith: replacing a value with itself")
    }

    /* take a snapshot, SetArg mutates the list */
    for _, u := range self.Value(old).Uses() {
        self.SetArg(self.instrs[u.User], u.Slot, v)
    }
}

// Remove detaches p from its block and drops its operand uses. The result of
// p must not have any remaining uses.
func (self *Func) Remove(p *Instr) {
    if p.Removed() {
        panic(fmt.Sprintf("instruction %d is already removed", p.Id))
    }

    /* the result must be dead */
    if p.Out != NoValue && self.Value(p.Out).NumUses() != 0 {
        panic(fmt.Sprintf("removing %s which still has %d uses", p, self.Value(p.Out).NumUses()))
    }

    /* terminators shape the CFG, they are never removed */
    if p.IsTerminator() {
        panic("removing a terminator: " + p.String())
    }

    /* drop all the operand uses */
    for i, v := range p.Args {
        self.Value(v).dropUse(Use { p.Id, i })
    }

    /* detach from the block and the instruction table */
    p.Block.removeAt(p.Block.Index(p))
    p.Block = nil
    self.instrs[p.Id] = nil
}

func (self *Func) newValue(kind ValueKind, ty Type) ValueID {
    id := ValueID(len(self.values))
    self.values = append(self.values, &Value {
        Id   : id,
        Kind : kind,
        Type : ty,
        Def  : NoInstr,
    })
    return id
}

func (self *Func) newInstr(op Op, ty Type, out Type, args ...ValueID) *Instr {
    p := &Instr {
        Id   : InstrID(len(self.instrs)),
        Op   : op,
        Out  : NoValue,
        Type : ty,
        fn   : self,
    }

    /* add to the instruction table */
    self.instrs = append(self.instrs, p)

    /* bind every operand */
    for _, v := range args {
        self.addArg(p, v)
    }

    /* allocate the result value if any */
    if out != Void {
        p.Out = self.newValue(KindInstr, out)
        self.values[p.Out].Def = p.Id
    }

    /* all done */
    return p
}

func (self *Func) addArg(p *Instr, v ValueID) {
    self.Value(v).addUse(Use { p.Id, len(p.Args) })
    p.Args = append(p.Args, v)
}

func (self *Func) String() string {
    var buf []string
    var par []string

    /* dump the parameters */
    for _, v := range self.Params {
        par = append(par, fmt.Sprintf("%s %s", self.Value(v), self.Value(v).Type))
    }

    /* dump every block */
    for _, bb := range self.Blocks {
        if bb.Name == "" {
            buf = append(buf, fmt.Sprintf("%s:", bb))
        } else {
            buf = append(buf, fmt.Sprintf("%s:  ; %s", bb, bb.Name))
        }
        for _, v := range bb.Ins {
            buf = append(buf, "    " + v.String())
        }
        if bb.Term != nil {
            for _, ss := range strings.Split(bb.Term.String(), "\n") {
                buf = append(buf, "    " + ss)
            }
        }
    }

    /* join them together */
    return fmt.Sprintf(
        "func %s(%s) {\n%s\n}",
        self.Name,
        strings.Join(par, ", "),
        strings.Join(buf, "\n"),
    )
}

// Module is a collection of functions transformed independently.
type Module struct {
    Funcs []*Func
}

func (self *Module) NewFunc(name string) *Func {
    fn := NewFunc(name)
    self.Funcs = append(self.Funcs, fn)
    return fn
}
