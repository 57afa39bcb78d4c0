package main

import (
	"fmt"

	"code.tickex.io/tickex/config"
)

type initCmd struct {
	Home string `long:"home" default:"." description:"Directory to write the configuration to"`
}

func (c *initCmd) Execute(_ []string) error {
	if err := config.Write(c.Home, config.NewDefaultConfig()); err != nil {
		return err
	}
	fmt.Printf("configuration written to %s\n", c.Home)
	return nil
}
