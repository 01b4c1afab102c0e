// Package args serializes option structs into ordered ip(8) argument tokens.
//
// [Marshal] walks a struct's exported fields in declaration order and emits,
// for each present field, the field's flag name followed by its value tokens.
// Emitted order always matches declaration order; ip(8) resolves repeated
// flags positionally, so the serializer never reorders or deduplicates.
//
// # Field Rules
//
//   - The flag name is the lowercased Go field name, overridden by an
//     `ip:"name"` struct tag. `ip:"-"` excludes a field unconditionally
//     (display-only attributes that must never reach the argument vector).
//   - A nil pointer or nil slice is an absent field and contributes nothing.
//   - Strings and integers emit the flag name followed by their text form.
//   - Booleans render per the [BoolMode] passed to Marshal.
//   - A value implementing [Appender] emits exactly the tokens it appends,
//     with no leading flag name — multi-token encodings such as "dev eth0"
//     or "xdp off" carry their own keywords. A slice of Appenders emits each
//     element's tokens in order.
//
// A value whose encoding is undefined (an enum zero value the command
// grammar cannot express) fails with a [*MarshalError]; producing malformed
// argument vectors silently would mask configuration bugs upstream.
package args
