package main

import (
	"context"
	"fmt"
	"text/tabwriter"
)

func (cli *commandLine) listAssessments() error {
	summaries, err := cli.grading.ListAssessments(context.Background())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cli.out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEXAM\tCREATED\tSTATUS\tQUESTIONS")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", s.ID, s.ExamName, s.CreatedAt, s.Status, s.TotalQuestions)
	}
	return w.Flush()
}

func (cli *commandLine) listResults(assessmentID string) error {
	detail, err := cli.grading.GetAssessment(context.Background(), assessmentID)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "%s\n\n", detail.Name)
	w := tabwriter.NewWriter(cli.out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "CANDIDATE\tTOTAL MARKS")
	for _, sheet := range detail.StudentAnswerSheets {
		fmt.Fprintf(w, "%s\t%v\n", sheet.CandidateKey, sheet.TotalMarks)
	}
	return w.Flush()
}
