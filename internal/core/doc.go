// Package core implements the format-profile-driven CSV import engine.
//
// The engine turns raw CSV text into typed records plus itemized,
// row-numbered error strings. It runs in one of two modes, fixed per
// parse call:
//
//   - Profile mode: an operator-defined FormatProfile supplies the
//     delimiter, the date notation, and an explicit mapping from source
//     column index to internal field name.
//   - Header mode: with no profile, columns are inferred from the header
//     row by name, and dates are tried against a fixed list of common
//     notations.
//
// Errors come in two tiers. Structural errors (empty file, missing
// required headers or mappings, mapped column index beyond the header
// width) abort the whole parse with a single explanatory message and
// zero records. Row-level errors are isolated: the engine always
// attempts every row, and each data row lands in exactly one of the two
// output sequences.
//
// The engine is pure with respect to its inputs: the same file and the
// same profile always produce the same Outcome, and no state is carried
// between calls. Persistence of parsed records, file storage, and the
// admin surface live elsewhere; this package has no database or UI
// dependencies.
package core
