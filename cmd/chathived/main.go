// Command chathived is the long-running process hosting one store: it
// acquires the store's file lock, opens and migrates the database, and
// keeps a service.Registry alive for other processes to eventually front
// with a wire-level adapter. It never listens on a socket itself.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"

	"github.com/chathive/chathive/internal/apppath"
	"github.com/chathive/chathive/internal/daemon"
)

func main() {
	storeFlag := flag.String("store", "", "store name (overrides config default)")
	flag.Parse()

	storeName := apppath.Resolve(*storeFlag)
	if err := apppath.ValidateName(storeName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{StoreName: storeName}),
	)

	app.Run()
}
