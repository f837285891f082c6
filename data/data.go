// Package data ships the demo conversation scripts and the canned response
// table inside the binary.
package data

import (
	"embed"
	"io/fs"
	"path"
	"sort"
)

//go:embed scripts/*.yaml
var scripts embed.FS

// ScriptsFS exposes the embedded YAML files at the root of the returned FS.
func ScriptsFS() fs.FS {
	sub, err := fs.Sub(scripts, "scripts")
	if err != nil {
		panic(err)
	}
	return sub
}

// ScriptFiles lists the embedded file names in lexical order.
func ScriptFiles() []string {
	matches, _ := fs.Glob(ScriptsFS(), "*.yaml")
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, path.Base(m))
	}
	sort.Strings(names)
	return names
}
