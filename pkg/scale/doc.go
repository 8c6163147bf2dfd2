// Package scale implements the SCALE binary encoding used by Substrate based
// chains.
//
// Encoding is driven by type descriptors instead of Go reflection. A
// Descriptor names the shape of a value (fixed width integer, compact
// integer, string, struct, tagged union, sequence) and a Registry maps every
// descriptor to the Converter that reads and writes it. The Codec ties the
// two together:
//
//	codec := scale.NewCodec(scale.NewRegistry())
//	raw, err := codec.Encode(uint64(1000), scale.U128)
//	// raw == e8 03 00 00 00 00 00 00 00 00 00 00 00 00 00 00
//
// Wire rules:
//
//   - integers are little endian with their declared width
//   - booleans are one byte, 0 or 1
//   - lengths and Compact values use the SCALE compact integer encoding
//   - struct members follow each other in declaration order, unpadded
//   - a tagged union is a one byte variant index followed by the variant
//     payload
//
// Decoded values use plain Go types: uint8 to uint64 and int8 to int64 for
// fixed width integers, *big.Int for u128, u256 and Compact, bool, string,
// []byte, Record for structs, Enum for unions and []any for sequences.
// Composite and Union descriptors accept constructor functions that turn the
// generic value into a caller defined type.
//
// Named descriptors can also be loaded from YAML, see LoadTypeDefs.
package scale
