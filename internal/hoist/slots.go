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

    `github.com/cloudwego/fplicm/ir`
)

// Slot is a stack cell caching the value of a memory location for the
// duration of a loop.
type Slot struct {
    Ptr      ir.ValueID
    Raw      ir.ValueID
    Addr     ir.ValueID
    Type     ir.Type
    Align    uint32
    Volatile bool
    Seed     *ir.Instr
    Repairs  []*ir.Instr
}

func (self *Slot) compatible(ld *ir.Instr) bool {
    return self.Type == ld.Type && self.Align == ld.Align && self.Volatile == ld.Volatile
}

func (self *Slot) String() string {
    return fmt.Sprintf("slot(ptr = v%d, addr = v%d, %s, align %d, %d repairs)", self.Ptr, self.Addr, self.Type, self.Align, len(self.Repairs))
}

// SlotManager owns the slots of a single loop.
type SlotManager struct {
    fn       *ir.Func
    pre      *ir.BasicBlock
    infreq   *StoreIndex
    slots    map[ir.ValueID]*Slot
    order    []*Slot
    repaired map[ir.InstrID]struct{}
}

func NewSlotManager(fn *ir.Func, preheader *ir.BasicBlock, infreq *StoreIndex) *SlotManager {
    return &SlotManager {
        fn       : fn,
        pre      : preheader,
        infreq   : infreq,
        slots    : make(map[ir.ValueID]*Slot),
        repaired : make(map[ir.InstrID]struct{}),
    }
}

// Lookup returns the slot of a stripped pointer, or nil.
func (self *SlotManager) Lookup(ptr ir.ValueID) *Slot {
    return self.slots[ptr]
}

// Slots returns all slots in creation order.
func (self *SlotManager) Slots() []*Slot {
    return self.order
}

// Repairs returns the number of repairs inserted so far.
func (self *SlotManager) Repairs() int {
    return len(self.repaired)
}

// EnsureSlot returns the slot caching the location ld reads from, creating
// it on first use. A new slot is allocated and seeded right before the
// preheader terminator, and every infrequent store to the same location is
// followed by a repair that reloads the location into the slot. A store is
// repaired at most once.
func (self *SlotManager) EnsureSlot(ld *ir.Instr) *Slot {
    raw := ld.Pointer()
    key := self.fn.StripPointerCasts(raw)

    /* already have one */
    if sl, ok := self.slots[key]; ok {
        return sl
    }

    /* allocate the slot */
    sl := &Slot {
        Ptr      : key,
        Raw      : raw,
        Type     : ld.Type,
        Align    : ld.Align,
        Volatile : ld.Volatile,
    }

    /* seed it in the preheader */
    bd := ir.NewBuilder(self.fn).SetInsertBefore(self.pre.Term)
    sl.Addr = bd.Alloca(sl.Type, sl.Align)
    sl.Seed = bd.Store(bd.Load(sl.Type, raw, sl.Align, sl.Volatile), sl.Addr, sl.Align, false)

    /* repair after every infrequent store */
    for _, st := range self.infreq.Stores(key) {
        if _, ok := self.repaired[st.Id]; !ok {
            self.repaired[st.Id] = struct{}{}
            sl.Repairs = append(sl.Repairs, self.repair(st, sl))
        }
    }

    /* register the slot */
    self.slots[key] = sl
    self.order = append(self.order, sl)
    return sl
}

func (self *SlotManager) repair(st *ir.Instr, sl *Slot) *ir.Instr {
    bd := ir.NewBuilder(self.fn).SetInsertAfter(st)
    return bd.Store(bd.Load(sl.Type, sl.Raw, sl.Align, sl.Volatile), sl.Addr, sl.Align, false)
}
