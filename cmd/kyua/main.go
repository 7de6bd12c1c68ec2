// Command kyua runs test cases described by a Kyuafile and reports on
// the results store they produce.
package main

import (
	"fmt"
	"os"

	"github.com/jpequegn/kyua/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kyua:", err)
		os.Exit(2)
	}
}
