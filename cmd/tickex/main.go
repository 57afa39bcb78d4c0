package main

import (
	"context"
	"os"

	"github.com/jessevdk/go-flags"
)

type rootCmd struct {
	Init initCmd `command:"init" description:"Write the default configuration to the node home"`
	Demo demoCmd `command:"demo" description:"Run a scripted batch auction against an in-memory ledger"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	root := rootCmd{
		Init: initCmd{},
		Demo: demoCmd{ctx: ctx},
	}
	parser := flags.NewParser(&root, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(1)
	}
}
