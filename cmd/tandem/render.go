package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dukerupert/tandem/internal/model"
)

func renderLists(w io.Writer, lists []model.List) {
	if len(lists) == 0 {
		fmt.Fprintln(w, "No lists yet. Create one with `tandem new`.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tCREATED")
	for _, l := range lists {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", l.ID, l.Name, l.Status, l.CreatedAt.Local().Format("2 Jan 15:04"))
	}
	tw.Flush()
}

func renderItem(w io.Writer, it model.Item) {
	box := "[ ]"
	if it.Checked {
		box = "[x]"
	}
	line := fmt.Sprintf("%s %s", box, it.Name)
	if it.Quantity != nil {
		line += "  (" + *it.Quantity + ")"
	}
	if it.ImageURL != nil {
		line += "  [photo]"
	}
	fmt.Fprintf(w, "  %s  %s\n", line, it.ID)
	if it.Notes != nil {
		fmt.Fprintf(w, "        %s\n", *it.Notes)
	}
	if it.ImageURL != nil {
		fmt.Fprintf(w, "        %s\n", *it.ImageURL)
	}
}

// renderList prints a list with its open items first, then the checked ones.
func renderList(w io.Writer, l *model.List, items []model.Item) {
	fmt.Fprintf(w, "%s  [%s]\n", l.Name, l.Status)
	if l.Notes != nil {
		fmt.Fprintln(w, *l.Notes)
	}
	fmt.Fprintln(w)

	var open, done []model.Item
	for _, it := range items {
		if it.Checked {
			done = append(done, it)
		} else {
			open = append(open, it)
		}
	}
	if len(items) == 0 {
		fmt.Fprintln(w, "  No items yet.")
		return
	}
	for _, it := range open {
		renderItem(w, it)
	}
	if len(done) > 0 {
		fmt.Fprintf(w, "\nChecked (%d)\n", len(done))
		for _, it := range done {
			renderItem(w, it)
		}
	}
}
