package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"selfpaced/backend/progress"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	faint  = color.New(color.Faint)
)

func statusLabel(s progress.Status) string {
	switch s {
	case progress.StatusSynced:
		return green.Sprint("synced")
	case progress.StatusSyncing:
		return yellow.Sprint("syncing")
	case progress.StatusError:
		return red.Sprint("sync error")
	}
	return faint.Sprint("local only")
}

func checkMark(done bool) string {
	if done {
		return green.Sprint("✓")
	}
	return faint.Sprint("·")
}

func warn(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", yellow.Sprint("warning:"), fmt.Sprintf(format, args...))
}
