package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) login(email, pwd string) error {
	ident, err := cli.sessions.Login(context.Background(), email, pwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Logged in as %s (%s)\n", ident.Username, ident.Role)
	return nil
}
