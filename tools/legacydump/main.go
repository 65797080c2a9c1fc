// legacydump prints the users and measurements of an old-format database as
// JSON, for inspecting a file before running the startup migration on it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"scaletrack/internal/legacy"
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: legacydump <file>")
		os.Exit(1)
	}

	dump, err := legacy.Dump(context.Background(), flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "legacydump:", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dump); err != nil {
		panic(err)
	}
}
