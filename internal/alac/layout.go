/*
   Copyright Mycophonic.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package alac

// FrameGroup is one frame's worth of channel indices (length 1 or 2) in
// the order the frameset writer/reader emits/consumes them.
type FrameGroup = []int

// ChannelLayout returns the fixed frame-group sequence for a stream of
// numChannels channels (§3). Counts outside 1..8 fall back to N
// single-channel frames.
func ChannelLayout(numChannels int) []FrameGroup {
	switch numChannels {
	case 1:
		return []FrameGroup{{0}}
	case 2:
		return []FrameGroup{{0, 1}}
	case 3:
		return []FrameGroup{{2}, {0, 1}}
	case 4:
		return []FrameGroup{{2}, {0, 1}, {3}}
	case 5:
		return []FrameGroup{{2}, {0, 1}, {3, 4}}
	case 6:
		return []FrameGroup{{2}, {0, 1}, {4, 5}, {3}}
	case 7:
		return []FrameGroup{{2}, {0, 1}, {4, 5}, {6}, {3}}
	case 8:
		return []FrameGroup{{2}, {6, 7}, {0, 1}, {4, 5}, {3}}
	default:
		groups := make([]FrameGroup, numChannels)
		for i := range groups {
			groups[i] = FrameGroup{i}
		}

		return groups
	}
}
