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

// ReplaceLoad replaces ld with a load from the slot, keeping the type, the
// alignment and the volatility. Every user of ld is redirected to the new
// load before ld is removed.
func ReplaceLoad(fn *ir.Func, ld *ir.Instr, sl *Slot) *ir.Instr {
    bd := ir.NewBuilder(fn).SetInsertBefore(ld)
    nv := bd.Load(ld.Type, sl.Addr, ld.Align, ld.Volatile)

    /* redirect the users, then drop the original */
    fn.ReplaceAllUsesWith(ld.Out, nv)
    fn.Remove(ld)
    return fn.Def(nv)
}

func definedIn(fn *ir.Func, l *analysis.Loop, v ir.ValueID) bool {
    p := fn.Def(v)
    return p != nil && l.Contains(p.Block)
}

// eligible checks whether a load on the frequent path reads a location that
// only the infrequent blocks write to, through a pointer available before
// the loop is entered.
func eligible(fn *ir.Func, l *analysis.Loop, ld *ir.Instr, freq *StoreIndex, infreq *StoreIndex, slots *SlotManager) bool {
    raw := ld.Pointer()
    key := fn.StripPointerCasts(raw)

    /* written on the frequent path, or not written in the loop at all */
    if freq.Has(key) || !infreq.Has(key) {
        return false
    }

    /* the slot is seeded outside the loop */
    if definedIn(fn, l, raw) || definedIn(fn, l, key) {
        return false
    }

    /* an existing slot must match the access */
    if sl := slots.Lookup(key); sl != nil && !sl.compatible(ld) {
        return false
    }

    /* all checks passed */
    return true
}
