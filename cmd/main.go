// cmd/main.go is the application entry point.
package main

import (
	"os"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
