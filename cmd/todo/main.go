package main

import (
	"fmt"
	"os"

	"github.com/roach88/todo/internal/cli"
)

var Version = "dev"

func main() {
	rootCmd := cli.NewRootCommand()
	rootCmd.Version = Version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
