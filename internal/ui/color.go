// Package ui holds terminal colour helpers for dirsync output.
package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"dirsync/internal/dirsync"
)

var (
	Success = color.New(color.FgGreen).SprintFunc()
	Error   = color.New(color.FgRed).SprintFunc()
	Warning = color.New(color.FgYellow).SprintFunc()
	Info    = color.New(color.FgCyan).SprintFunc()
	Bold    = color.New(color.Bold).SprintFunc()
	Dim     = color.New(color.Faint).SprintFunc()
)

const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "⚠"
)

// StatusSuccess returns a green checkmark followed by msg.
func StatusSuccess(msg string) string {
	return Success(SymbolSuccess) + " " + msg
}

// StatusError returns a red cross followed by msg.
func StatusError(msg string) string {
	return Error(SymbolError) + " " + msg
}

// StatusWarning returns a yellow warning sign followed by msg.
func StatusWarning(msg string) string {
	return Warning(SymbolWarning) + " " + msg
}

// DisableColors turns colour output off for the whole process.
func DisableColors() {
	color.NoColor = true
}

// IsColorEnabled reports whether colour output is on.
func IsColorEnabled() bool {
	return !color.NoColor
}

// ActionLabel colours an action kind: copies cyan, updates yellow.
func ActionLabel(kind dirsync.ActionKind) string {
	label := fmt.Sprintf("%-6s", kind.Label())
	if kind == dirsync.ActionUpdate {
		return Warning(label)
	}
	return Info(label)
}

// PrintPlan writes every action, conflict and warning of plan to w.
func PrintPlan(w io.Writer, plan *dirsync.Plan) {
	fmt.Fprintf(w, "%s %s %s %s (%s mode)\n",
		Bold("Plan:"), plan.Left, Dim("<->"), plan.Right, plan.Mode)
	if plan.Empty() {
		fmt.Fprintln(w, Dim("  no actions"))
	}
	for _, a := range plan.Actions {
		fmt.Fprintf(w, "  %s %s %s %s\n", ActionLabel(a.Kind), a.Source, Dim("->"), a.Destination)
	}
	for _, c := range plan.Conflicts {
		fmt.Fprintln(w, "  "+StatusWarning("conflict, left untouched: "+c.RelativePath))
	}
	for _, warn := range plan.Warnings {
		fmt.Fprintln(w, "  "+StatusWarning(fmt.Sprintf("skipped unreadable %s: %v", warn.Path, warn.Err)))
	}
}

// PrintSummary writes the final status line and any per-action failures to w.
func PrintSummary(w io.Writer, summary *dirsync.Summary) {
	for _, f := range summary.Failures {
		fmt.Fprintln(w, "  "+StatusError(fmt.Sprintf("%s: %v", f.Action, f.Err)))
	}
	switch {
	case summary.Status == dirsync.StatusNothingToDo && summary.Plan != nil && summary.Plan.Unresolved() > 0:
		fmt.Fprintln(w, StatusWarning(summary.Message()))
	case summary.Status == dirsync.StatusCompleted, summary.Status == dirsync.StatusNothingToDo:
		fmt.Fprintln(w, StatusSuccess(summary.Message()))
	case summary.Status == dirsync.StatusCompletedWithFailures:
		fmt.Fprintln(w, StatusError(summary.Message()))
	default:
		fmt.Fprintln(w, StatusWarning(summary.Message()))
	}
}
