package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/answercheck/core/session"
	gradingsvc "github.com/trezcool/answercheck/services/grading"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	sessions *session.Store
	grading  gradingsvc.Service
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -email EMAIL             - sign in; the password will be prompted")
	fmt.Fprintln(cli.out, "  logout                         - drop the active session")
	fmt.Fprintln(cli.out, "  assessments                    - list your assessments")
	fmt.Fprintln(cli.out, "  results -assessment ID         - list student results for an assessment")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	loginCmd := flag.NewFlagSet("login", flag.ExitOnError)
	loginEmail := loginCmd.String("email", "", "The account's email. The password will be prompted next.")

	resultsCmd := flag.NewFlagSet("results", flag.ExitOnError)
	resultsID := resultsCmd.String("assessment", "", "The assessment ID.")

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginEmail == "" {
			loginCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(*loginEmail, string(pwd))
	case "logout":
		return cli.sessions.Logout()
	case "assessments":
		return cli.listAssessments()
	case "results":
		if err := resultsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resultsID == "" {
			resultsCmd.Usage()
			return errHelp
		}
		return cli.listResults(*resultsID)
	default:
		cli.printUsage()
		return errHelp
	}
}
