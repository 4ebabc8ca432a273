package main

import (
	"fmt"
	"os"

	"github.com/dpshade/prompt-manager/internal/cli"
	"github.com/dpshade/prompt-manager/internal/errors"
	"github.com/dpshade/prompt-manager/internal/logging"
)

var version = "0.1.0"

func main() {
	rootCmd := cli.NewRootCmd(version, cli.StdStreams())
	if err := rootCmd.Execute(); err != nil {
		verbose := os.Getenv("PROMPT_MANAGER_DEBUG") != ""
		handler := errors.NewCLIErrorHandler(verbose, logging.GetLogger("main"))
		fmt.Fprintln(os.Stderr, handler.HandleError(err))
		os.Exit(1)
	}
}
