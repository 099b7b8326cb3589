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

import (
	"os"
	"strconv"
)

const (
	_DefaultMaxHopsFloor = 8 // at least 8 hops when searching the frequent path
	_DefaultHopsPerBlock = 4 // plus 4 hops for every block of the loop
)

const (
	_DefaultHotNum = 4 // an edge is hot when taken at least 4/5 of the time
	_DefaultHotDen = 5
)

var (
	MaxHopsFloor = parseOrDefault("FPLICM_MAX_HOPS_FLOOR", _DefaultMaxHopsFloor, 1)
	HopsPerBlock = parseOrDefault("FPLICM_HOPS_PER_BLOCK", _DefaultHopsPerBlock, 0)
	Verify       = parseBool("FPLICM_VERIFY")
	Trace        = parseBool("FPLICM_TRACE")
	DebugDir     = os.Getenv("FPLICM_DEBUG_DIR")
)

func parseOrDefault(key string, def int, min int) int {
	if env := os.Getenv(key); env == "" {
		return def
	} else if val, err := strconv.ParseUint(env, 0, 64); err != nil {
		panic("fplicm: invalid value for " + key)
	} else if ret := int(val); ret < min {
		panic("fplicm: value too small for " + key)
	} else {
		return ret
	}
}

func parseBool(key string) bool {
	if env := os.Getenv(key); env == "" {
		return false
	} else if val, err := strconv.ParseBool(env); err != nil {
		panic("fplicm: invalid value for " + key)
	} else {
		return val
	}
}
