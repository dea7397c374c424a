/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package main

import (
	"os"

	"github.com/dapr/kit/signals"

	"github.com/diagridio/go-shell-cron/cmd/crond/app"
)

func main() {
	if err := app.NewRootCommand().ExecuteContext(signals.Context()); err != nil {
		os.Exit(1)
	}
}
