package main

import (
	"errors"
	"fmt"

	financebladi "financebladi"

	"github.com/fatih/color"
	"github.com/kr/pretty"
	"github.com/spf13/cobra"
)

var errBatchFailed = errors.New("daily batch failed")

var dump bool

// 한 번 실행. 종료 코드는 시트 업로드 결과를 따른다
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily batch once",
	RunE: func(cmd *cobra.Command, _ []string) error {

		comp, err := setup(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer comp.Close()

		report := comp.fb.RunDaily(cmd.Context())

		if dump {
			fmt.Printf("%# v\n", pretty.Formatter(report.Snapshot))
		}
		printReport(report)

		if teleBot := newTeleBot(); teleBot != nil {
			teleBot.SendMessage(report.Summary())
		}

		if !report.Success() {
			return errBatchFailed
		}
		if comp.sheetErr != nil {
			return fmt.Errorf("%w: %w", errBatchFailed, comp.sheetErr)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dump, "dump", false, "print the collected snapshot")
}

func printReport(report financebladi.Report) {
	status := color.New(color.FgGreen, color.Bold)
	switch {
	case !report.Success():
		status = color.New(color.FgRed, color.Bold)
	case report.Degraded:
		status = color.New(color.FgYellow, color.Bold)
	}
	_, _ = status.Println(report.Summary())
}
