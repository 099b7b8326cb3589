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

package analysis

import (
    `fmt`
)

// Prob is an exact rational probability N/D in [0, 1].
type Prob struct {
    N uint32
    D uint32
}

var (
    ProbZero = Prob { 0, 1 }
    ProbOne  = Prob { 1, 1 }
)

func NewProb(n uint32, d uint32) Prob {
    if d == 0 {
        panic("analysis: zero denominator in probability")
    } else if n > d {
        panic(fmt.Sprintf("analysis: probability %d/%d is greater than 1", n, d))
    } else {
        return Prob { n, d }
    }
}

// ratio builds n/d from 64-bit counts, scaling both down until they fit.
func ratio(n uint64, d uint64) Prob {
    for d > 1 << 31 {
        n >>= 1
        d >>= 1
    }
    return NewProb(uint32(n), uint32(d))
}

func (self Prob) Cmp(other Prob) int {
    lhs := uint64(self.N) * uint64(other.D)
    rhs := uint64(other.N) * uint64(self.D)

    /* compare the cross products */
    switch {
        case lhs < rhs : return -1
        case lhs > rhs : return 1
        default        : return 0
    }
}

func (self Prob) GreaterOrEqual(other Prob) bool {
    return self.Cmp(other) >= 0
}

// Add sums two probabilities of disjoint events, clamped at one.
func (self Prob) Add(other Prob) Prob {
    n := uint64(self.N) * uint64(other.D) + uint64(other.N) * uint64(self.D)
    d := uint64(self.D) * uint64(other.D)

    /* clamp to 1 on rounding noise */
    if n > d {
        return ProbOne
    } else {
        return ratio(n, d)
    }
}

func (self Prob) Float() float64 {
    return float64(self.N) / float64(self.D)
}

func (self Prob) IsZero() bool {
    return self.N == 0
}

func (self Prob) String() string {
    return fmt.Sprintf("%d/%d (%.2f%%)", self.N, self.D, self.Float() * 100)
}
