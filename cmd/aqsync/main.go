// Command aqsync mirrors air-quality readings from Cloud Firestore into
// static JSON files.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/aqsync/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "aqsync:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
