package main

import (
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"
)

var colorProfile = termenv.ColorProfile()

// keyword renders a highlighted term for help text and listings.
func keyword(s string) string {
	return termenv.String(s).Foreground(colorProfile.Color("204")).Bold().String()
}

func subtle(s string) string {
	return termenv.String(s).Foreground(colorProfile.Color("241")).String()
}

// paragraph wraps and indents help text the way the terminal expects it.
func paragraph(s string) string {
	return indent.String(wordwrap.String(s, 78), 2)
}
