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

package fplicm

import (
    `fmt`
    `strings`

    `github.com/cloudwego/fplicm/ir`
)

// UnknownPassError occures when looking up a pipeline name that does not
// name any pass.
type UnknownPassError struct {
    Name string
}

func (self UnknownPassError) Error() string {
    return fmt.Sprintf("UnknownPassError(%s): expect one of %s", self.Name, strings.Join(Passes(), ", "))
}

// VerifyError occures when a function is structurally broken, either before
// or after a pass runs.
type VerifyError = ir.VerifyError

// PanicError occures when a pass panics while processing a function of a
// module.
type PanicError struct {
    Func  string
    Value interface{}
}

func (self PanicError) Error() string {
    return fmt.Sprintf("PanicError(%s): %v", self.Func, self.Value)
}
