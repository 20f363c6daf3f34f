// Command lingo builds Lingua Franca projects
package main

import (
	"os"

	"github.com/lf-lang/lingo/pkg/cli"
)

var version = "dev"

func main() {
	cfg := cli.NewConfig()
	cfg.Version = version

	err := cli.NewCLI(cfg).Execute(os.Args[1:])
	if err != nil {
		cli.PrintError(os.Stderr, err)
	}
	os.Exit(cli.ExitCode(err))
}
