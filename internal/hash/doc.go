// Package hash provides the checksum stored flight frames are verified
// with.
//
// All checksums use CRC32-Castagnoli (CRC32C), which Go computes with
// hardware instructions on x86 (SSE4.2) and ARM (CRC extension):
//
//	checksum := hash.CRC32C(data)
package hash
