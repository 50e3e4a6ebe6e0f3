package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/answercheck/core"
	"github.com/trezcool/answercheck/core/evaluation"
	"github.com/trezcool/answercheck/core/session"
	gradingsvc "github.com/trezcool/answercheck/services/grading"
	dummysvc "github.com/trezcool/answercheck/services/grading/dummy"
	"github.com/trezcool/answercheck/storage/state"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	conf := &core.Config{TestMode: true, SecretKey: "test-secret"}

	grading := dummysvc.NewService(conf)
	sessions := session.NewStore(grading, state.NewFileStore(filepath.Join(t.TempDir(), "state"), conf.SecretKey))
	sessions.Bootstrap()

	// seed an account
	if _, err := grading.Signup(context.Background(), "awe@test.cd", "mdr12345"); err != nil {
		t.Fatalf("seeding account failed: %v", err)
	}

	out := new(bytes.Buffer)
	return &commandLine{sessions: sessions, grading: grading, out: out}, out
}

type cliTest struct {
	name        string
	args        []string // without program name
	wantErr     error
	wantAuthErr bool
	extra       interface{}
}

func Test_commandLine_login(t *testing.T) {
	cli, out := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"login"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"login", "-email", "lol@test.cd"}, wantErr: errHelp},
		{name: "unknown account", args: []string{"login", "-email", "lol@test.cd"}, extra: extra{pwd: "lol"}, wantAuthErr: true},
		{name: "wrong password", args: []string{"login", "-email", "awe@test.cd"}, extra: extra{pwd: "lol"}, wantAuthErr: true},
		{name: "login ok", args: []string{"login", "-email", "awe@test.cd"}, extra: extra{pwd: "mdr12345"}},
	}
	for _, tt := range tests {
		args := append([]string{"answercheck"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			case tt.wantAuthErr:
				if _, ok := errors.Cause(err).(*core.AuthError); !ok {
					t.Errorf("cli.run() error = %v, want AuthError", err)
				}
				if cli.sessions.Current().Authenticated() {
					t.Error("session established on failed login")
				}
			default:
				if err != nil {
					t.Fatalf("cli.run() unexpected error = %v", err)
				}
				if !cli.sessions.Current().Authenticated() {
					t.Error("session not established")
				}
				if !strings.Contains(out.String(), "Logged in as awe") {
					t.Errorf("missing login confirmation in output: %s", out.String())
				}
			}
		})
	}
}

func Test_commandLine_logout(t *testing.T) {
	cli, _ := setup(t)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("mdr12345"), nil }
	if err := cli.run([]string{"answercheck", "login", "-email", "awe@test.cd"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := cli.run([]string{"answercheck", "logout"}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	if cli.sessions.Current().Authenticated() {
		t.Error("session still established after logout")
	}
}

func Test_commandLine_assessments(t *testing.T) {
	cli, out := setup(t)

	id, err := cli.grading.CreateAssessment(
		context.Background(), "Finals",
		gradingsvc.File{Name: "paper.pdf", Reader: strings.NewReader("%PDF")},
		gradingsvc.File{Name: "key.pdf", Reader: strings.NewReader("%PDF")},
	)
	if err != nil {
		t.Fatalf("creating assessment failed: %v", err)
	}

	if err := cli.run([]string{"answercheck", "assessments"}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	if !strings.Contains(out.String(), "Finals") || !strings.Contains(out.String(), id) {
		t.Errorf("missing assessment in output: %s", out.String())
	}
}

func Test_commandLine_results(t *testing.T) {
	cli, out := setup(t)

	id, err := cli.grading.CreateAssessment(
		context.Background(), "Finals",
		gradingsvc.File{Name: "paper.pdf", Reader: strings.NewReader("%PDF")},
		gradingsvc.File{Name: "key.pdf", Reader: strings.NewReader("%PDF")},
	)
	if err != nil {
		t.Fatalf("creating assessment failed: %v", err)
	}
	if _, err := cli.grading.UploadStudentAnswers(context.Background(), id, []gradingsvc.StudentSheet{
		{CandidateKey: "C-001", File: gradingsvc.File{Name: "c1.pdf", Reader: strings.NewReader("%PDF")}},
	}); err != nil {
		t.Fatalf("uploading sheets failed: %v", err)
	}

	tests := []cliTest{
		{name: "no args", args: []string{"results"}, wantErr: errHelp},
		{name: "unknown assessment", args: []string{"results", "-assessment", "lol"}, wantErr: evaluation.ErrNotFound},
		{name: "results ok", args: []string{"results", "-assessment", id}},
	}
	for _, tt := range tests {
		args := append([]string{"answercheck"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErr != nil {
				if errors.Cause(err) != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("cli.run() unexpected error = %v", err)
			}
			if !strings.Contains(out.String(), "C-001") {
				t.Errorf("missing candidate in output: %s", out.String())
			}
		})
	}
}
