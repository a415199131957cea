package main

import (
	"github.com/ingestkit/engine/executor"
)

// newRegistry builds the executor.Registry bound to the concrete
// preservation tools a default workflow description names, grounded on
// cmd/kernel/tools.go's registerBuiltinTools pattern: one Register call
// per named capability, each wrapping a shell-invoked external command
// rather than an in-process handler (spec.md §1 scopes the tools that do
// real identification/normalization/packaging work out of the engine).
func newRegistry() *executor.Registry {
	r := executor.New()

	must(r.Register("identify_format", executor.ShellHandler("")))
	must(r.Register("virus_scan", executor.ShellHandler("")))
	must(r.Register("validate_metadata", executor.ShellHandler("")))
	must(r.Register("normalize", executor.ShellHandler("")))
	must(r.Register("verify_checksums", executor.ShellHandler("")))
	must(r.Register("create_bag", executor.ShellHandler("")))
	must(r.Register("assign_uuids", executor.ShellHandler("")))

	return r
}

func must(err error) {
	if err != nil {
		panic("failed to register executor: " + err.Error())
	}
}
