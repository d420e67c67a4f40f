package service

import (
	"fmt"
	"sort"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	reportdomain "github.com/revlytic/revlytic/internal/report/domain"
)

func render(snapshot reportdomain.Snapshot) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Revenue Metrics Report", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(14,
		col.New(6).Add(
			text.New("Account: "+snapshot.OrgID, props.Text{Top: 0, Size: 9}),
			text.New("Generated: "+snapshot.GeneratedAt.Format("2006-01-02 15:04 MST"), props.Text{Top: 4, Size: 9}),
			text.New(fmt.Sprintf("Net revenue (trailing 12 months): %s", formatCents(snapshot.RevenueTotal)), props.Text{Top: 8, Size: 9}),
		),
		col.New(6),
	)

	m.AddRow(10,
		text.NewCol(12, "Current metrics", props.Text{Size: 14, Style: fontstyle.Bold}),
	)
	m.AddRow(8,
		text.NewCol(4, "Metric", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Current", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(3, "Previous", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Growth", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	names := make([]string, 0, len(snapshot.Metrics))
	for name := range snapshot.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := snapshot.Metrics[name]
		m.AddRow(7,
			text.NewCol(4, name, props.Text{Size: 9}),
			text.NewCol(3, fmt.Sprintf("%.2f", value.Current), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(3, fmt.Sprintf("%.2f", value.Previous), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%.1f%%", value.Growth), props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(10,
		text.NewCol(12, "Monthly history", props.Text{Size: 14, Style: fontstyle.Bold, Top: 4}),
	)
	m.AddRow(8,
		text.NewCol(2, "Month", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "MRR", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "ARR", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Churn", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "LTV", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "CAC", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, point := range snapshot.Historical {
		m.AddRow(7,
			text.NewCol(2, point.Month, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%.2f", point.MRR), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%.2f", point.ARR), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%.1f%%", point.ChurnRate), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%.2f", point.LTV), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%.2f", point.CAC), props.Text{Size: 9, Align: align.Right}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return doc.GetBytes(), nil
}

func formatCents(value int64) string {
	return fmt.Sprintf("%.2f", float64(value)/100)
}
