package service

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/connscan/domain"
)

// OutputFormatterImpl implements the OutputFormatter interface
type OutputFormatterImpl struct {
	// ShowDetails lists every violation in text output
	ShowDetails bool
}

// NewOutputFormatter creates a new output formatter
func NewOutputFormatter() *OutputFormatterImpl {
	return &OutputFormatterImpl{ShowDetails: true}
}

// WriteJSON writes data as JSON to the writer
func WriteJSON(writer io.Writer, data interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// WriteYAML writes data as YAML to the writer
func WriteYAML(writer io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

// writeAs dispatches structured formats and falls back to text
func writeAs(format domain.OutputFormat, writer io.Writer, data interface{}, text func() error) error {
	switch format {
	case domain.OutputFormatJSON:
		return WriteJSON(writer, data)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, data)
	case domain.OutputFormatText, "":
		return text()
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// Write writes the analysis response in the specified format
func (f *OutputFormatterImpl) Write(response *domain.AnalyzeResponse, format domain.OutputFormat, writer io.Writer) error {
	return writeAs(format, writer, response, func() error {
		return f.writeAnalyzeText(response, writer)
	})
}

// WriteCheck writes a quality gate result in the specified format
func (f *OutputFormatterImpl) WriteCheck(result *domain.CheckResult, format domain.OutputFormat, writer io.Writer) error {
	return writeAs(format, writer, result, func() error {
		return f.writeCheckText(result, writer)
	})
}

// WriteTrend writes a trend report in the specified format
func (f *OutputFormatterImpl) WriteTrend(report *domain.TrendReport, format domain.OutputFormat, writer io.Writer) error {
	return writeAs(format, writer, report, func() error {
		return f.writeTrendText(report, writer)
	})
}

var severityColors = map[domain.Severity]*color.Color{
	domain.SeverityCritical: color.New(color.FgRed, color.Bold),
	domain.SeverityHigh:     color.New(color.FgRed),
	domain.SeverityMedium:   color.New(color.FgYellow),
	domain.SeverityLow:      color.New(color.FgCyan),
}

// colorSeverity renders a severity label in its colour
func colorSeverity(s domain.Severity) string {
	label := strings.ToUpper(string(s))
	if c, ok := severityColors[s]; ok {
		return c.Sprint(label)
	}
	return label
}

// colorScore renders a 0-1 score green, yellow or red
func colorScore(score float64) string {
	text := fmt.Sprintf("%.3f", score)
	switch {
	case score >= 0.8:
		return color.GreenString(text)
	case score >= 0.6:
		return color.YellowString(text)
	default:
		return color.RedString(text)
	}
}

func newTable(writer io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(writer)
	t.SetStyle(table.StyleLight)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

func comma(n int) string { return humanize.Comma(int64(n)) }

// writeAnalyzeText writes the analysis response as tables
func (f *OutputFormatterImpl) writeAnalyzeText(response *domain.AnalyzeResponse, writer io.Writer) error {
	fmt.Fprintf(writer, "\n=== connscan Analysis Report ===\n")
	fmt.Fprintf(writer, "Profile: %s\n", response.Profile)
	fmt.Fprintf(writer, "Generated: %s\n", response.GeneratedAt)
	fmt.Fprintf(writer, "Duration: %dms\n", response.DurationMs)
	fmt.Fprintf(writer, "Version: %s\n", response.Version)
	if response.Cancelled {
		fmt.Fprintf(writer, "%s\n", color.YellowString("Analysis was cancelled; results are partial."))
	}
	fmt.Fprintln(writer)

	snap := response.Snapshot
	summary := newTable(writer, "Summary")
	summary.AppendRows([]table.Row{
		{"Files analyzed", comma(response.FilesAnalyzed)},
		{"Functions", comma(response.FunctionCount)},
		{"Violations", comma(len(response.Violations))},
		{"Waived", comma(response.Waived)},
		{"Duplicate clusters", comma(len(response.Clusters))},
	})
	summary.AppendSeparator()
	summary.AppendRows([]table.Row{
		{"Quality score", colorScore(snap.QualityScore)},
		{"Connascence index", fmt.Sprintf("%.2f", snap.ConnascenceIndex)},
		{"NASA compliance", colorScore(snap.NASAComplianceScore)},
		{"Duplication score", colorScore(snap.DuplicationScore)},
	})
	summary.Render()
	fmt.Fprintln(writer)

	if len(response.Violations) > 0 {
		bySeverity := newTable(writer, "By Severity")
		bySeverity.AppendHeader(table.Row{"Severity", "Count"})
		for _, sev := range domain.AllSeverities {
			bySeverity.AppendRow(table.Row{colorSeverity(sev), comma(snap.BySeverity[sev])})
		}
		bySeverity.Render()
		fmt.Fprintln(writer)
	}

	if f.ShowDetails && len(response.Violations) > 0 {
		violations := newTable(writer, "Violations")
		violations.AppendHeader(table.Row{"Severity", "Rule", "Location", "Description"})
		for _, v := range response.Violations {
			violations.AppendRow(table.Row{colorSeverity(v.Severity), v.RuleID, v.Location(), v.Description})
		}
		violations.Render()
		fmt.Fprintln(writer)
	}

	if len(response.Clusters) > 0 {
		clusters := newTable(writer, "Duplicate Algorithms")
		clusters.AppendHeader(table.Row{"Cluster", "Similarity", "Functions"})
		for _, c := range response.Clusters {
			members := make([]string, 0, len(c.Functions))
			for _, fn := range c.Functions {
				members = append(members, fmt.Sprintf("%s (%s:%d)", fn.Name, fn.FilePath, fn.Line))
			}
			clusters.AppendRow(table.Row{c.ID, fmt.Sprintf("%.2f", c.Similarity), strings.Join(members, "\n")})
		}
		clusters.Render()
		fmt.Fprintln(writer)
	}

	if len(response.ParseErrors) > 0 {
		fmt.Fprintf(writer, "Parse errors:\n")
		for _, e := range response.ParseErrors {
			fmt.Fprintf(writer, "  - %s: %s\n", e.FilePath, e.Message)
		}
	}
	if len(response.DetectorErrors) > 0 {
		fmt.Fprintf(writer, "Detector errors:\n")
		for _, e := range response.DetectorErrors {
			fmt.Fprintf(writer, "  - %s [%s]: %s\n", e.FilePath, e.Detector, e.Message)
		}
	}

	if len(response.Violations) == 0 && !response.HasErrors() {
		fmt.Fprintf(writer, "%s\n", color.GreenString("No connascence violations found."))
	}
	return nil
}

// writeCheckText writes the quality gate result
func (f *OutputFormatterImpl) writeCheckText(result *domain.CheckResult, writer io.Writer) error {
	if result.Passed {
		fmt.Fprintf(writer, "%s %s files, quality %.3f\n",
			color.GreenString("PASSED"), comma(result.Summary.FilesAnalyzed), result.Summary.QualityScore)
		return nil
	}

	fmt.Fprintf(writer, "%s %d blocking finding(s) at or above %s, %d budget(s) exceeded\n",
		color.RedString("FAILED"), result.Summary.BlockingFindings, result.Summary.FailOn, result.Summary.BudgetsExceeded)

	t := newTable(writer, "")
	t.AppendHeader(table.Row{"Category", "Rule", "Severity", "Location", "Message"})
	for _, v := range result.Violations {
		t.AppendRow(table.Row{v.Category, v.Rule, colorSeverity(domain.Severity(v.Severity)), v.Location, v.Message})
	}
	t.Render()
	return nil
}

// writeTrendText writes the trend analysis, baseline comparison and history
func (f *OutputFormatterImpl) writeTrendText(report *domain.TrendReport, writer io.Writer) error {
	fmt.Fprintf(writer, "\n=== connscan Trend ===\n")
	fmt.Fprintf(writer, "History: %s snapshot(s), state %s\n\n", comma(len(report.History)), report.State)

	trend := newTable(writer, "Trend")
	if report.Trend.Status == domain.TrendInsufficientData {
		trend.AppendRow(table.Row{"Status", "insufficient data (need at least 2 snapshots)"})
	} else {
		trend.AppendRows([]table.Row{
			{"Quality", fmt.Sprintf("%s (%+.3f)", report.Trend.QualityTrend, report.Trend.QualityDelta)},
			{"Violations", fmt.Sprintf("%s (%+d)", report.Trend.ViolationTrend, report.Trend.ViolationDelta)},
			{"Overall", trendLabel(report.Trend.OverallTrend)},
			{"Snapshots compared", report.Trend.SnapshotsAnalyzed},
		})
	}
	trend.Render()
	fmt.Fprintln(writer)

	baseline := newTable(writer, "Baseline")
	if report.Baseline.Status == domain.BaselineNone {
		baseline.AppendRow(table.Row{"Status", "no baseline set (run 'connscan baseline set')"})
	} else {
		baseline.AppendRows([]table.Row{
			{"Status", trendLabel(report.Baseline.Status)},
			{"Baseline quality", fmt.Sprintf("%.3f", report.Baseline.BaselineQuality)},
			{"Current quality", fmt.Sprintf("%.3f", report.Baseline.CurrentQuality)},
			{"Quality delta", fmt.Sprintf("%+.3f", report.Baseline.QualityDelta)},
			{"Violation delta", fmt.Sprintf("%+d", report.Baseline.ViolationDelta)},
			{"Taken", humanize.Time(report.Baseline.BaselineTakenAt)},
		})
	}
	baseline.Render()
	fmt.Fprintln(writer)

	if len(report.History) > 0 {
		history := newTable(writer, "History")
		history.AppendHeader(table.Row{"Taken", "Quality", "Violations", "Index", "Files"})
		for _, s := range report.History {
			history.AppendRow(table.Row{
				humanize.RelTime(s.Timestamp, time.Now(), "ago", "from now"),
				colorScore(s.QualityScore),
				comma(s.TotalViolations),
				fmt.Sprintf("%.2f", s.ConnascenceIndex),
				comma(s.FilesAnalyzed),
			})
		}
		history.Render()
	}
	return nil
}

// trendLabel colours a trend or baseline label by direction
func trendLabel(label string) string {
	switch label {
	case domain.TrendImproving, domain.TrendExcellent, domain.BaselineImproved, domain.BaselineSignificantlyImproved:
		return color.GreenString(label)
	case domain.TrendDegrading, domain.TrendNeedsAttention, domain.BaselineDegraded, domain.BaselineSignificantlyDegraded:
		return color.RedString(label)
	case domain.TrendMixed:
		return color.YellowString(label)
	}
	return label
}
