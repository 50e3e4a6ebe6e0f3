package main

import (
	"log"
	"os"

	"github.com/trezcool/answercheck/core"
	"github.com/trezcool/answercheck/core/session"
	gradingsvc "github.com/trezcool/answercheck/services/grading"
	dummysvc "github.com/trezcool/answercheck/services/grading/dummy"
	"github.com/trezcool/answercheck/storage/state"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "CLI : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	var grading gradingsvc.Service
	if conf.Debug {
		grading = dummysvc.NewService(conf)
	} else {
		grading = gradingsvc.NewService(conf)
	}
	sessions := session.NewStore(grading, state.NewFileStore(conf.StatePath, conf.SecretKey))
	sessions.Bootstrap()

	cli := commandLine{
		sessions: sessions,
		grading:  grading,
		out:      os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
