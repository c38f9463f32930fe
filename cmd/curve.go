package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"financebladi/curve"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

// 국채 곡선 조회 후 표로 출력. 시트, 백업에는 기록하지 않는다
var curveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Fetch the BKAM bond bulletin and print the curve with the 2/5/10Y rates",
	RunE: func(cmd *cobra.Command, _ []string) error {

		comp, err := setup(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer comp.Close()

		c, err := comp.fb.Curve(cmd.Context())
		if err != nil && !errors.Is(err, curve.ErrEmptyCurve) {
			return err
		}

		if c.Len() == 0 {
			_, _ = color.New(color.FgYellow, color.Bold).Println("no valid observation. fallback rates")
		} else {
			fmt.Printf("Reference %s, %d points, %d skipped\n", c.Reference(), c.Len(), len(c.Skipped()))
			if err := printPoints(c.Points()); err != nil {
				return err
			}
		}
		return printTenors(curve.Standard(c))
	},
}

func printPoints(points []curve.Point) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Maturity", "Days", "Years", "Rate (%)"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, p := range points {
		data = append(data, []string{
			p.MaturityDate.String(),
			strconv.Itoa(p.DaysToMaturity),
			strconv.FormatFloat(p.YearsToMaturity(), 'f', 2, 64),
			strconv.FormatFloat(p.Rate, 'f', 3, 64),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printTenors(rates curve.Rates) error {
	values, _ := rates.Values()

	fallback := color.New(color.FgYellow).SprintFunc()
	ok := color.New(color.FgGreen).SprintFunc()

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Tenor", "Target Days", "Rate (%)", "Method", "Between"})

	var data [][]string
	for _, t := range curve.StandardTenors {
		res := rates[t.Label]

		method := ok(res.Method.String())
		if !res.Available {
			method = fallback("Fallback")
		}

		between := ""
		if res.Before != nil && res.After != nil {
			between = fmt.Sprintf("%s ~ %s", res.Before.MaturityDate, res.After.MaturityDate)
		}

		data = append(data, []string{
			t.Label,
			strconv.Itoa(curve.TargetDays(t.Years)),
			strconv.FormatFloat(values[t.Label], 'f', 3, 64),
			method,
			between,
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
