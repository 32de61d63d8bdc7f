package main

import (
	"os"

	"go.uber.org/automaxprocs/maxprocs"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/fleetcore-io/fleetcore/cmd/fleetctl/app"
)

func main() {
	ctx := genericapiserver.SetupSignalContext()
	_, _ = maxprocs.Set()

	cmd := app.NewFleetctlCommand(ctx)
	if err := cmd.Execute(); err != nil {
		app.PrintError(cmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}
