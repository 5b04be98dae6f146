package output

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/pcrwatch/pcrwatch/internal/core"
)

// TableFormatter renders snapshots as an ASCII table.
type TableFormatter struct{}

// FormatSnapshot renders one snapshot as a table.
func (f *TableFormatter) FormatSnapshot(snap *core.Snapshot) (string, error) {
	if snap == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("%s @ %s", snap.Symbol, snap.FetchedAt.Format(time.RFC3339)))
	t.AppendHeader(table.Row{"Metric", "Calls", "Puts", "Ratio"})

	t.AppendRow(table.Row{
		"Open Interest",
		formatQty(snap.TotalCallOI),
		formatQty(snap.TotalPutOI),
		formatRatio(snap.PCROpenInterest, snap.NoCallSide),
	})
	t.AppendRow(table.Row{
		"Volume",
		formatQty(snap.TotalCallVolume),
		formatQty(snap.TotalPutVolume),
		formatRatio(snap.PCRVolume, false),
	})

	t.AppendFooter(table.Row{
		"Underlying",
		fmt.Sprintf("%.2f", snap.UnderlyingValue),
		fmt.Sprintf("%d strikes", snap.Strikes),
		"",
	})

	return t.Render(), nil
}

func formatQty(value float64) string {
	if value == float64(int64(value)) {
		return fmt.Sprintf("%d", int64(value))
	}
	return fmt.Sprintf("%.2f", value)
}

func formatRatio(value float64, noCallSide bool) string {
	if noCallSide {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", value)
}
