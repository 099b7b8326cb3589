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
    `github.com/cloudwego/fplicm/internal/opts`
    `github.com/cloudwego/fplicm/ir`
)

// Performance computes the frequent path of every loop but never changes
// the function.
type Performance struct {
    opts opts.Options
    hot  analysis.Prob
    dbg  *_Debugger
}

func NewPerformance(o opts.Options) *Performance {
    return &Performance {
        opts : o,
        hot  : analysis.NewProb(o.HotNum, o.HotDen),
        dbg  : newDebugger(o),
    }
}

func (self *Performance) Run(fn *ir.Func, am *analysis.Manager) Result {
    ret := Result{}
    li := am.Loops()

    /* same restriction as the transforming variant */
    if li.Irreducible() {
        ret.Irreducible = true
        return ret
    }

    /* report the paths only */
    for _, l := range li.Loops() {
        fp := FindFrequentPath(l, am.Probabilities(), self.hot, self.opts.MaxHops(l.NumBlocks()))
        rep := &Report {
            Header  : l.Header(),
            Depth   : l.Depth(),
            Path    : fp.Blocks,
            Skipped : SkipAnalysisOnly,
        }
        ret.Loops = append(ret.Loops, rep)
        self.dbg.loop(fn, rep)
    }

    /* never changes anything */
    return ret
}
