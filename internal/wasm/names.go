// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package wasm

// Name section subsection IDs.
const (
	nameSubModule   byte = 0
	nameSubFunction byte = 1
	nameSubLocal    byte = 2
)

// parseNameSection reads the function-name subsection of the custom "name"
// section into names. The section is advisory metadata: malformed name data
// stops interpretation instead of failing the module, keeping whatever was
// parsed so far.
func parseNameSection(r *reader, names map[uint32]string) {
	for r.remaining() > 0 {
		id, err := r.u8()
		if err != nil {
			return
		}
		size, err := r.u32()
		if err != nil {
			return
		}
		payload, err := r.take(int(size))
		if err != nil {
			return
		}
		if id != nameSubFunction {
			continue
		}

		sub := &reader{data: payload, base: r.base}
		count, err := sub.u32()
		if err != nil {
			return
		}
		for i := uint32(0); i < count; i++ {
			idx, err := sub.u32()
			if err != nil {
				return
			}
			name, err := sub.name()
			if err != nil {
				return
			}
			names[idx] = name
		}
	}
}
