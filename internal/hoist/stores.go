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
    `github.com/cloudwego/fplicm/analysis`
    `github.com/cloudwego/fplicm/ir`
)

// InfrequentBlocks returns the members of l that are not on the frequent
// path, in loop order.
func InfrequentBlocks(l *analysis.Loop, fp *FrequentPath) []*ir.BasicBlock {
    var ret []*ir.BasicBlock
    for _, bb := range l.Blocks() {
        if !fp.Contains(bb) {
            ret = append(ret, bb)
        }
    }
    return ret
}

// StoreIndex groups stores by the pointer they write to, with the pointer
// casts stripped.
type StoreIndex struct {
    ptrs   []ir.ValueID
    stores map[ir.ValueID][]*ir.Instr
}

func IndexStores(fn *ir.Func, blocks []*ir.BasicBlock) *StoreIndex {
    ret := &StoreIndex {
        stores: make(map[ir.ValueID][]*ir.Instr),
    }

    /* scan every store of every block */
    for _, bb := range blocks {
        for _, st := range bb.Stores() {
            key := fn.StripPointerCasts(st.Pointer())
            if _, ok := ret.stores[key]; !ok {
                ret.ptrs = append(ret.ptrs, key)
            }
            ret.stores[key] = append(ret.stores[key], st)
        }
    }

    /* all done */
    return ret
}

// Ptrs returns the distinct stripped pointers, in the order first seen.
func (self *StoreIndex) Ptrs() []ir.ValueID {
    return self.ptrs
}

func (self *StoreIndex) Has(ptr ir.ValueID) bool {
    _, ok := self.stores[ptr]
    return ok
}

func (self *StoreIndex) Stores(ptr ir.ValueID) []*ir.Instr {
    return self.stores[ptr]
}
