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
    `log`
    `os`
    `path/filepath`

    `github.com/cloudwego/fplicm/internal/opts`
    `github.com/cloudwego/fplicm/ir`
    `github.com/davecgh/go-spew/spew`
)

const (
    _ColorFrequent   = "lightcoral"
    _ColorInfrequent = "lightblue"
)

var _dumper = spew.ConfigState {
    Indent                  : "    ",
    MaxDepth                : 3,
    SortKeys                : true,
    DisableCapacities       : true,
    DisablePointerAddresses : true,
}

type _Debugger struct {
    dir   string
    trace *log.Logger
}

type _LoopDump struct {
    Header     *ir.BasicBlock
    Depth      int
    Path       []*ir.BasicBlock
    Infrequent []*ir.BasicBlock
    Slots      []*Slot
    Repairs    int
    Rewritten  int
    Skipped    SkipReason
}

func newDebugger(o opts.Options) *_Debugger {
    ret := &_Debugger { dir: o.DebugDir }
    if o.Trace {
        ret.trace = log.New(os.Stderr, "fplicm: ", log.LstdFlags)
    }
    return ret
}

func (self *_Debugger) tracef(format string, args ...interface{}) {
    if self.trace != nil {
        self.trace.Printf(format, args...)
    }
}

func (self *_Debugger) loop(fn *ir.Func, rep *Report) {
    self.tracef("%s: %s", fn.Name, rep)

    /* draw the frequent path */
    if self.dir != "" && len(rep.Path) != 0 {
        draw_path(filepath.Join(self.dir, fmt.Sprintf("%s.%s.svg", fn.Name, rep.Header)), rep)
    }
}

func (self *_Debugger) function(fn *ir.Func, res *Result) {
    if self.trace != nil {
        self.trace.Printf("%s: loop reports\n%s", fn.Name, _dumper.Sdump(dumpLoops(res.Loops)))
    }
    if self.dir != "" {
        self.dot(fn, res)
    }
}

func (self *_Debugger) dot(fn *ir.Func, res *Result) {
    colors := make(map[*ir.BasicBlock]string)

    /* inner loops come first, keep their colors */
    for _, rep := range res.Loops {
        for _, bb := range rep.Path {
            if _, ok := colors[bb]; !ok {
                colors[bb] = _ColorFrequent
            }
        }
        for _, bb := range rep.Infrequent {
            if _, ok := colors[bb]; !ok {
                colors[bb] = _ColorInfrequent
            }
        }
    }

    /* write the graph */
    fp, err := os.OpenFile(filepath.Join(self.dir, fn.Name + ".gv"), os.O_RDWR | os.O_CREATE | os.O_TRUNC, 0644)
    if err != nil {
        panic(err)
    }
    if err = ir.WriteDot(fp, fn, colors); err != nil {
        panic(err)
    }
    if err = fp.Close(); err != nil {
        panic(err)
    }
}

func dumpLoops(reps []*Report) []_LoopDump {
    ret := make([]_LoopDump, 0, len(reps))
    for _, rep := range reps {
        ret = append(ret, _LoopDump(*rep))
    }
    return ret
}
