// Package ast defines types for modeling the syntax of a definition file:
// declarations, fields, types, and the tokens and comments that make them up.
//
// A FileNode is the root of the tree for a single file. It is produced by the
// parser and consumed by the raw-declaration-tree builder; positions and
// comments are recovered on demand through the file's FileInfo rather than
// stored on each node.
package ast
