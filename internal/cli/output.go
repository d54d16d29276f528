// Human-readable and JSON rendering for CLI output.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/mesh-intelligence/estates/internal/view"
	"github.com/mesh-intelligence/estates/pkg/types"
)

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// printTable flushes a tabwriter table and trims trailing padding from each
// line.
func printTable(w io.Writer, write func(tw io.Writer)) {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	write(tw)
	tw.Flush()

	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func printUsers(w io.Writer, users []types.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users found.")
		return
	}
	printTable(w, func(tw io.Writer) {
		fmt.Fprintln(tw, "ID\tNAME\tEMAIL")
		fmt.Fprintln(tw, "--\t----\t-----")
		for _, u := range users {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", u.ID, truncate(u.Name, 30), u.Email)
		}
	})
	fmt.Fprintf(w, "Total: %d user(s)\n", len(users))
}

func printProperties(w io.Writer, rows []types.Property) {
	printTable(w, func(tw io.Writer) {
		fmt.Fprintln(tw, "ID\tOWNER\tLOCATION\tSIZE\tPRICE\tDESCRIPTION")
		fmt.Fprintln(tw, "--\t-----\t--------\t----\t-----\t-----------")
		for _, p := range rows {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
				p.ID,
				truncate(p.OwnerName(), 24),
				truncate(p.Location, 24),
				view.FormatNumber(p.Size),
				view.FormatNumber(p.Price),
				truncate(p.Description, 40),
			)
		}
	})
}

// printSnapshot renders the current page of a view with its position.
func printSnapshot(w io.Writer, s view.Snapshot) {
	if s.Matched == 0 {
		fmt.Fprintln(w, "No properties found.")
	} else {
		printProperties(w, s.Rows)
	}
	fmt.Fprintf(w, "Page %d of %d (%d of %d properties)\n", s.Page+1, s.PageCount, s.Matched, s.Total)
}
