package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/jward/dapper"
)

// outputResult writes result to the command's stdout in the selected format.
func outputResult(cmd *cobra.Command, a *app, result CLIResult) error {
	w := cmd.OutOrStdout()
	if a.v.GetString(formatKey) == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(cmd *cobra.Command, a *app, command string, err error) error {
	a.errorHandled = true
	if a.v.GetString(formatKey) == "text" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

// outputResultText dispatches to the text formatter for the result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case *dapper.Report:
		formatReportText(w, v)
	case []CLINormalized:
		formatNormalizedText(w, v)
	case []CLIDataset:
		formatDatasetsText(w, v)
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// newTable returns a borderless table in the style used by every text
// formatter.
func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func formatReportText(w io.Writer, r *dapper.Report) {
	if len(r.Resolved) > 0 {
		fmt.Fprintln(w, "Resolved:")
		formatResolutionsText(w, r.Resolved)
		fmt.Fprintln(w)
	}

	if len(r.Remote) > 0 {
		fmt.Fprintln(w, "Remote:")
		table := newTable(w, "KIND", "URL", "TAG", "FILES")
		for _, d := range r.Remote {
			table.Append([]string{d.Kind, d.URL, d.Tag, strconv.Itoa(len(d.Files))})
		}
		table.Render()
		fmt.Fprintln(w)
	}

	if len(r.Unresolved) > 0 {
		fmt.Fprintln(w, "Unresolved:")
		formatResolutionsText(w, r.Unresolved)
		fmt.Fprintln(w)
	}

	s := r.Stats
	fmt.Fprintf(w, "%d file(s) scanned, %d skipped: %d resolved, %d unresolved, %d remote, %d ignored\n",
		s.Files, s.FilesSkipped, s.Resolved, s.Unresolved, s.Remote, s.Ignored)
}

func formatResolutionsText(w io.Writer, rs []dapper.Resolution) {
	table := newTable(w, "LANGUAGE", "KIND", "TOKEN", "PACKAGES", "FILES")
	for _, res := range rs {
		table.Append([]string{
			res.Language,
			res.Kind,
			res.Token,
			strings.Join(res.Packages, ", "),
			strconv.Itoa(len(res.Files)),
		})
	}
	table.Render()
}

func formatNormalizedText(w io.Writer, ns []CLINormalized) {
	table := newTable(w, "INPUT", "NAME", "VERSION", "SOABI", "NORMALIZED")
	for _, n := range ns {
		table.Append([]string{n.Input, n.Name, n.Version, n.SOABI, strconv.FormatBool(n.Normalized)})
	}
	table.Render()
}

func formatDatasetsText(w io.Writer, ds []CLIDataset) {
	if len(ds) == 0 {
		fmt.Fprintln(w, "No datasets installed")
		return
	}
	table := newTable(w, "NAME", "VERSION", "FORMAT", "TIMESTAMP", "CATEGORIES", "FILEPATH")
	for _, d := range ds {
		table.Append([]string{
			d.Name,
			strconv.Itoa(d.Version),
			d.Format,
			d.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"),
			strings.Join(d.Categories, ", "),
			d.Filepath,
		})
	}
	table.Render()
	fmt.Fprintf(w, "\n%d dataset(s) installed\n", len(ds))
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
