/*
 * Copyright 2022 CloudWeGo Authors
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

package opts

type Options struct {
	MaxHopsFloor int
	HopsPerBlock int
	HotNum       uint32
	HotDen       uint32
	Verify       bool
	Trace        bool
	DebugDir     string
}

// MaxHops returns the hop budget of the frequent path search for a loop with
// n blocks.
func (self *Options) MaxHops(n int) int {
	if hops := self.HopsPerBlock * n; hops > self.MaxHopsFloor {
		return hops
	} else {
		return self.MaxHopsFloor
	}
}

func GetDefaultOptions() Options {
	return Options{
		MaxHopsFloor: MaxHopsFloor,
		HopsPerBlock: HopsPerBlock,
		HotNum:       _DefaultHotNum,
		HotDen:       _DefaultHotDen,
		Verify:       Verify,
		Trace:        Trace,
		DebugDir:     DebugDir,
	}
}
