package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/senomorf/oracle-freetier-instance-creation/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(2)
	}
}
