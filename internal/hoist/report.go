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

type SkipReason uint8

const (
    NotSkipped SkipReason = iota
    SkipNoPreheader
    SkipNoFrequentPath
    SkipNoBackedge
    SkipNoInfrequentBlocks
    SkipNoCandidates
    SkipAnalysisOnly
)

func (self SkipReason) String() string {
    switch self {
        case NotSkipped             : return "transformed"
        case SkipNoPreheader        : return "no preheader"
        case SkipNoFrequentPath     : return "no frequent path"
        case SkipNoBackedge         : return "frequent path does not return to the header"
        case SkipNoInfrequentBlocks : return "no infrequent blocks"
        case SkipNoCandidates       : return "no eligible loads"
        case SkipAnalysisOnly       : return "analysis only"
        default                     : return fmt.Sprintf("SkipReason(%d)", self)
    }
}

// Report describes what happened to a single loop.
type Report struct {
    Header     *ir.BasicBlock
    Depth      int
    Path       []*ir.BasicBlock
    Infrequent []*ir.BasicBlock
    Slots      []*Slot
    Repairs    int
    Rewritten  int
    Skipped    SkipReason
}

func (self *Report) String() string {
    if self.Skipped != NotSkipped {
        return fmt.Sprintf("loop %s (depth %d): skipped, %s", self.Header, self.Depth, self.Skipped)
    } else {
        return fmt.Sprintf(
            "loop %s (depth %d): %d loads rewritten, %d slots, %d repairs",
            self.Header,
            self.Depth,
            self.Rewritten,
            len(self.Slots),
            self.Repairs,
        )
    }
}

// Result is the outcome of running a pass over one function.
type Result struct {
    Changed     bool
    Irreducible bool
    Loops       []*Report
}
