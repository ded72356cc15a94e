// Package payload provides the JSON value types carried by location records.
//
// Values form a closed set: Null, Bool, Number, String, Array and *Object.
// Objects keep their keys in insertion order and numbers keep their original
// JSON text, so a decoded line re-encodes to the same fields in the same order.
//
// Two encodings are available:
//   - MarshalJSON: compact JSON in insertion order (what gets published)
//   - MarshalCanonical: sorted keys, NFC strings, normalized numbers (what
//     gets hashed and compared)
package payload
