// Command floorctl checks and edits floor layout files locally and talks
// to the floor layout API.
//
//	floorctl validate floor.yaml
//	floorctl merge floor.json t1 t2 -o merged.json
//	floorctl draft push main floor.json
//	floorctl activate main --expected-version 3
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
