// Package main provides the entry point for the reconcile CLI.
package main

import (
	"os"

	"github.com/jamesainslie/reconcile/pkg/reconcile/logging"
)

func main() {
	err := Execute()
	_ = logging.Close()
	if err != nil {
		os.Exit(1)
	}
}
