// Package defcompile is a compiler front end for message definition files.
// It loads a set of files and their transitive imports, parses them,
// resolves every cross-reference (message inheritance, enum and options
// extensions, field types, imported names), and produces resolved models
// ready for code generation.
//
// The simplest usage compiles files from the filesystem:
//
//	compiler := defcompile.Compiler{
//	    Resolver: &defcompile.SourceResolver{},
//	}
//	files, err := compiler.Compile(ctx, "protocol/commands.def")
//
// Each returned model.File carries the file's namespace tree, messages with
// their field lists flattened down the inheritance chain, enums and options
// with final member values and storage widths, and compounds. Every file in
// the import graph is compiled at most once per operation, and independent
// files are compiled in parallel.
//
// Diagnostics carry a source position and a kind. By default the first
// error aborts the operation; supplying a reporter.Reporter collects as many
// diagnostics as possible instead:
//
//	var diags []reporter.ErrorWithPos
//	compiler.Reporter = reporter.NewReporter(
//	    func(err reporter.ErrorWithPos) error {
//	        diags = append(diags, err)
//	        return nil
//	    },
//	    nil,
//	)
//
// Lower-level building blocks live in the subpackages: ast and parser for
// syntax trees, msgdef for the raw declaration tree, linker for resolution,
// and model for the resolved output.
package defcompile
