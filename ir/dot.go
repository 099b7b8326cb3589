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
    `html`
    `io`
    `strings`

    `github.com/oleiade/lane`
)

func dotrow(ss string, w *int) string {
    if len(ss) > *w {
        *w = len(ss)
    }
    return fmt.Sprintf(
        "<tr><td align=\"left\">%s</td></tr>\n",
        strings.ReplaceAll(html.EscapeString(ss), " ", "&nbsp;"),
    )
}

func dotbb(bb *BasicBlock, color string) string {
    var w int
    var ins []string
    var term []string
    var pred []string

    /* dump instructions and the terminator */
    for _, v := range bb.Ins {
        ins = append(ins, dotrow(v.String(), &w))
    }
    for _, ss := range strings.Split(bb.Term.String(), "\n") {
        term = append(term, dotrow(ss, &w))
    }

    /* dump predecessors */
    for _, d := range bb.Pred {
        pred = append(pred, d.String())
    }

    /* block header */
    buf := []string {
        fmt.Sprintf("<table border=\"1\" cellborder=\"0\" cellspacing=\"0\" bgcolor=\"%s\">\n", color),
        fmt.Sprintf("<tr><td width=\"%d\">%s %s</td></tr>\n", w * 10 + 5, bb, html.EscapeString(bb.Name)),
        "<hr/>\n",
        dotrow(fmt.Sprintf("# pred = {%s}", strings.Join(pred, ", ")), &w),
    }

    /* instructions if any */
    if len(bb.Ins) != 0 {
        buf = append(buf, "<hr/>\n")
        buf = append(buf, ins...)
    }

    /* the terminator */
    buf = append(buf, "<hr/>\n")
    buf = append(buf, term...)
    buf = append(buf, "</table>")
    return strings.Join(buf, "")
}

// WriteDot renders the reachable part of fn in Graphviz format. Blocks listed
// in colors are filled with the given color, the rest stay white.
func WriteDot(w io.Writer, fn *Func, colors map[*BasicBlock]string) error {
    q := lane.NewQueue()
    n := make(map[int]bool)
    e := make(map[[2]int]bool)
    buf := []string {
        "digraph CFG {",
        `    xdotversion = "15"`,
        `    graph [ fontname = "Fira Code" ]`,
        `    node [ fontname = "Fira Code" fontsize="16" shape = "plaintext" ]`,
        `    edge [ fontname = "Fira Code" ]`,
        `    START [ shape = "circle" ]`,
        fmt.Sprintf(`    START -> %s`, fn.Entry()),
    }

    /* breadth-first traversal from the entry */
    for q.Enqueue(fn.Entry()); !q.Empty(); {
        p := q.Dequeue().(*BasicBlock)
        if n[p.Id] {
            continue
        }

        /* pick the fill color */
        color, ok := colors[p]
        if !ok {
            color = "white"
        }

        /* add the block */
        n[p.Id] = true
        buf = append(buf, fmt.Sprintf(`    %s [ label = < %s > ]`, p, dotbb(p, color)))

        /* add every distinct edge */
        for i, ln := range p.Succs() {
            if !n[ln.Id] {
                q.Enqueue(ln)
            }
            if edge := [2]int { p.Id, ln.Id }; !e[edge] {
                e[edge] = true
                buf = append(buf, fmt.Sprintf(`    %s -> %s [ label = "%s" ]`, p, ln, edgelabel(p.Term, i)))
            }
        }
    }

    /* write out the graph */
    buf = append(buf, "}\n")
    _, err := io.WriteString(w, strings.Join(buf, "\n"))
    return err
}

func edgelabel(p *Instr, i int) string {
    switch p.Op {
        case OpBranch : if i == 0 { return "true" } else { return "false" }
        case OpSwitch : if i == 0 { return "otherwise" } else { return fmt.Sprintf("%d", p.Cases[i - 1]) }
        default       : return "goto"
    }
}
