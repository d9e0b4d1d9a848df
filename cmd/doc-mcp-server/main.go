// Command doc-mcp-server exposes the Swagger example and ApiFox upload tools
// over MCP, either on stdin/stdout or over HTTP.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/bobmcallan/doc-mcp-server/internal/common"
)

func main() {
	common.LoadVersionFromFile()

	if err := newRootCmd().Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
