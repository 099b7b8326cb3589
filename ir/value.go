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

type (
    ValueID int32
    InstrID int32
)

const (
    NoValue ValueID = -1
    NoInstr InstrID = -1
)

type ValueKind uint8

const (
    KindParam ValueKind = iota
    KindGlobal
    KindConst
    KindInstr
)

// Use is a back-reference from a value to one of its consumers: the
// consuming instruction and the operand slot holding the value.
type Use struct {
    User InstrID
    Slot int
}

type Value struct {
    Id   ValueID
    Kind ValueKind
    Type Type
    Name string
    Imm  int64
    Def  InstrID
    uses []Use
}

// Uses returns a snapshot of the use list, in the order the uses were added.
func (self *Value) Uses() []Use {
    return append([]Use(nil), self.uses...)
}

func (self *Value) NumUses() int {
    return len(self.uses)
}

func (self *Value) String() string {
    switch self.Kind {
        case KindParam  : return "%" + self.Name
        case KindGlobal : return "@" + self.Name
        case KindConst  : return fmt.Sprintf("$%d", self.Imm)
        default         : return fmt.Sprintf("%%v%d", self.Id)
    }
}

func (self *Value) addUse(u Use) {
    self.uses = append(self.uses, u)
}

func (self *Value) dropUse(u Use) {
    for i, v := range self.uses {
        if v == u {
            self.uses = append(self.uses[:i], self.uses[i + 1:]...)
            return
        }
    }
    panic(fmt.Sprintf("use list of %s does not contain %v", self, u))
}
