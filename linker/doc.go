// Package linker resolves raw declaration trees into final models. Linking
// one file binds every textual cross-reference it contains: message parents,
// enum and options extensions, and field types, including references into
// imported files. It then flattens message field lists down the inheritance
// chain, assigns final numeric values to enum and options members, and
// computes storage-width metadata.
//
// A file can only be linked after all of its dependencies have been linked.
// The compiler in the root package orchestrates that ordering; Link itself
// handles a single file.
package linker
