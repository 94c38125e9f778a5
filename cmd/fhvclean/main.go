// Command fhvclean cleans the bronze for-hire-vehicle trip table into the
// silver table.
//
//	fhvclean run --config pipeline.yaml
//	fhvclean validate --config pipeline.yaml
//	fhvclean history --config pipeline.yaml -n 5
package main

import (
	"fmt"
	"os"

	// register all backends with the storage factory; the pipeline picks one.
	_ "fhvclean/internal/storage/all"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fhvclean: %v\n", err)
		os.Exit(1)
	}
}
