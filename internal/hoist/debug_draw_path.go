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
    `os`
    `strings`

    `github.com/ajstarks/svgo`
    `github.com/cloudwego/fplicm/ir`
)

func blocklines(b *ir.BasicBlock) []string {
    ret := make([]string, 0, len(b.Ins) + 1)
    for _, v := range b.Ins {
        ret = append(ret, v.String())
    }
    return append(ret, strings.Split(b.Term.String(), "\n")...)
}

func draw_path(fn string, rep *Report) {
    rows := 0
    maxi := 0
    mark := make(map[*ir.BasicBlock]int)
    hot := make(map[*ir.BasicBlock]bool)
    bbs := append(append([]*ir.BasicBlock(nil), rep.Path...), rep.Infrequent...)
    for _, b := range rep.Path {
        hot[b] = true
    }
    for _, b := range bbs {
        for _, s := range blocklines(b) {
            if len(s) > maxi {
                maxi = len(s)
            }
        }
        rows += len(blocklines(b)) + 1
    }
    insw := maxi * 9 + 40
    fp, err := os.OpenFile(fn, os.O_RDWR | os.O_CREATE | os.O_TRUNC, 0644)
    if err != nil {
        panic(err)
    }
    p := svg.New(fp)
    p.Start(insw + 240, rows * 24 + 100)
    if _, err = fp.WriteString(`<rect width="100%" height="100%" fill="white" />` + "\n"); err != nil {
        panic(err)
    }
    bbi := 0
    for _, b := range bbs {
        ln := blocklines(b)
        color := _ColorInfrequent
        if hot[b] {
            color = _ColorFrequent
        }
        mark[b] = 95 + bbi * 24
        p.Rect(150, 78 + bbi * 24, insw, (len(ln) + 1) * 24 - 6, "fill:" + color + ";fill-opacity:0.4;stroke:gray")
        p.Text(16, 100 + bbi * 24, b.String(), "fill:gray;font-size:16px;font-family:monospace")
        bbi++
        for _, s := range ln {
            p.Text(160, 100 + bbi * 24, s, "fill:black;font-size:16px;font-family:monospace")
            bbi++
        }
    }
    for i := 1; i < len(rep.Path); i++ {
        p.Line(120, mark[rep.Path[i - 1]], 120, mark[rep.Path[i]], "stroke:red;stroke-width:3")
    }
    if n := len(rep.Path); n > 1 && rep.Path[n - 1].HasSucc(rep.Header) {
        p.Line(100, mark[rep.Path[n - 1]], 100, mark[rep.Header], "stroke:red;stroke-width:2;stroke-dasharray:6,4")
    }
    for _, b := range rep.Path {
        p.Circle(120, mark[b], 5, "fill:white;stroke:red;stroke-width:2")
    }
    p.End()
    if err = fp.Close(); err != nil {
        panic(err)
    }
}
