//go:build !js && !wasm

package main

import (
	"fmt"
	"os"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func printBanner() {
	banner := `
 ____             _      _    _ _
| __ )  ___  __ _| |_   / \  | (_) __ _ _ __
|  _ \ / _ \/ _' | __| / _ \ | | |/ _' | '_ \
| |_) |  __/ (_| | |_ / ___ \| | | (_| | | | |
|____/ \___|\__,_|\__/_/   \_\_|_|\__, |_| |_|
                                  |___/
        Beat Grid Annotation Aligner
`
	fmt.Println(banner)
}
