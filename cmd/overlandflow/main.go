// Command overlandflow is a command-line interface for the overland-flow
// simulation core.
package main

import (
	"fmt"
	"os"

	"github.com/maseology/overlandflow/internal/cli"
)

func main() {
	if err := cli.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
