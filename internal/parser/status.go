package parser

// Status channels are packed 16 to a little-endian two-byte group.
// Bit 0 (LSB of the first byte) is the lowest-numbered channel of the group,
// bit 7 (MSB of the first byte) the 8th, bit 8 (LSB of the second byte) the 9th
// and bit 15 (MSB of the second byte) the 16th.

// UnpackStatus extracts the first n (at most 16) channel states from a two-byte group.
// Bits above n are ignored.
func UnpackStatus(group []byte, n int) []bool {
	if n > 16 {
		n = 16
	}
	out := make([]bool, n)
	lo := min(n, 8)
	for i := 0; i < lo; i++ {
		out[i] = group[0]&(1<<uint(i)) != 0
	}
	for i := 8; i < n; i++ {
		out[i] = group[1]&(1<<uint(i-8)) != 0
	}
	return out
}

// PackStatus packs up to 16 channel states into a two-byte group. Unused bits are zero.
func PackStatus(values []bool) []byte {
	group := make([]byte, 2)
	for i, v := range values {
		if i >= 16 {
			break
		}
		if v {
			group[i/8] |= 1 << uint(i%8)
		}
	}
	return group
}

// packStatusGroups packs any number of channel states into ceil(n/16) groups.
func packStatusGroups(values []bool) []byte {
	out := make([]byte, 0, 2*((len(values)+15)/16))
	for start := 0; start < len(values); start += 16 {
		end := min(start+16, len(values))
		out = append(out, PackStatus(values[start:end])...)
	}
	return out
}
