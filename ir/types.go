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

type Type uint8

const (
    Void Type = iota
    I1
    I8
    I16
    I32
    I64
    Ptr
)

var _TypeSize = [...]int {
    Void : 0,
    I1   : 1,
    I8   : 1,
    I16  : 2,
    I32  : 4,
    I64  : 8,
    Ptr  : 8,
}

func (self Type) Size() int {
    if int(self) < len(_TypeSize) {
        return _TypeSize[self]
    } else {
        panic(fmt.Sprintf("invalid type: %d", self))
    }
}

func (self Type) String() string {
    switch self {
        case Void : return "void"
        case I1   : return "i1"
        case I8   : return "i8"
        case I16  : return "i16"
        case I32  : return "i32"
        case I64  : return "i64"
        case Ptr  : return "ptr"
        default   : return fmt.Sprintf("type(%d)", uint8(self))
    }
}

// Truncate narrows v to the width of the type, sign-extending the result.
func (self Type) Truncate(v int64) int64 {
    switch self {
        case I1  : return v & 1
        case I8  : return int64(int8(v))
        case I16 : return int64(int16(v))
        case I32 : return int64(int32(v))
        default  : return v
    }
}
