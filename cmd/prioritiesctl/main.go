// Command prioritiesctl is the admin CLI of the priorities service: it
// classifies deadlines, imports priorities from YAML, renders reports and
// mints development tokens against the configured backend.
package main

import (
	"fmt"
	"os"

	"github.com/convenios/prioridades/pkg/logger"
)

func main() {
	logger.SetOutput(os.Stderr)
	if err := newRootCmd(defaultEnv()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
