package cli

import (
	"fmt"
)

// inspect identifies a local file by its suffix (or content probe) and,
// for headered formats, reads the metadata header without loading the
// body.
func (a *App) inspect(args []string) {
	if len(args) == 0 {
		warning("usage: inspect <file> [file...]")
		return
	}

	for _, path := range args {
		desc, err := a.registry.DescriptorFor(path)
		if err != nil {
			failure("%s: %v", path, err)
			continue
		}
		fmt.Printf("%s: %s\n", path, desc.Name)

		if !desc.HasHeader {
			continue
		}
		f, err := a.registry.FileFor(path)
		if err != nil {
			failure("%s: %v", path, err)
			continue
		}
		if err := f.ReadMetadataOnly(path); err != nil {
			failure("%s: %v", path, err)
			continue
		}
		fmt.Printf("  encoding: %s\n", f.ReadEncoding())
		for _, key := range f.Header().Keys() {
			value, _ := f.Header().Get(key)
			fmt.Printf("  %s: %s\n", key, value)
		}
	}
}
