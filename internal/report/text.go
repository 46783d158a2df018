package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const textWidth = 72

// RenderText writes the report as plain UTF-8 text.
func RenderText(w io.Writer, r *Report) error {
	bw := bufio.NewWriter(w)
	rule := strings.Repeat("=", textWidth)
	for _, h := range r.Header {
		fmt.Fprintln(bw, center(h, textWidth))
	}
	fmt.Fprintln(bw, rule)
	fmt.Fprintln(bw, center(Title, textWidth))
	fmt.Fprintln(bw)

	section(bw, SectionData)
	fmt.Fprintf(bw, "Protocolo: %s\n", r.Protocol)
	fmt.Fprintf(bw, "Nº Prioridade: %s\n", r.Number)
	fmt.Fprintf(bw, "Data Liberação: %s\n", r.ReleaseDate)
	fmt.Fprintf(bw, "Prazo Máximo: %s\n", r.Deadline)
	fmt.Fprintln(bw, "Descrição:")
	for _, line := range wrap(r.Description, textWidth) {
		fmt.Fprintf(bw, "  %s\n", line)
	}
	fmt.Fprintln(bw)

	section(bw, SectionStatus)
	fmt.Fprintf(bw, "Situação Atual: %s\n", r.Situation)
	fmt.Fprintf(bw, "Dias Restantes: %s\n", r.DaysRemaining)
	fmt.Fprintf(bw, "Progresso (%d%%): %s\n", r.Percentage, progressBar(r.Percentage, 40))
	fmt.Fprintln(bw)

	section(bw, SectionDocs)
	if len(r.Rows) == 0 {
		fmt.Fprintln(bw, NoDocuments)
	}
	for _, row := range r.Rows {
		prefix := fmt.Sprintf("%d. ", row.Number)
		lines := wrap(row.Name, textWidth-len(prefix)-16)
		for i, line := range lines {
			if i == 0 {
				fmt.Fprintf(bw, "%s%-*s %15s\n", prefix, textWidth-len(prefix)-16, line, row.Status)
				continue
			}
			fmt.Fprintf(bw, "%s%s\n", strings.Repeat(" ", len(prefix)), line)
		}
	}
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, rule)
	fmt.Fprintln(bw, r.Footer())
	return bw.Flush()
}

func section(w io.Writer, title string) {
	fmt.Fprintln(w, strings.ToUpper(title))
	fmt.Fprintln(w, strings.Repeat("-", textWidth))
}

func center(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return strings.Repeat(" ", (width-n)/2) + s
}

func progressBar(pct, width int) string {
	filled := pct * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// wrap splits s into lines of at most width runes, breaking on spaces where
// possible. It always returns at least one line.
func wrap(s string, width int) []string {
	if width < 1 {
		width = 1
	}
	var lines []string
	var cur []rune
	for _, word := range strings.Fields(s) {
		wr := []rune(word)
		for len(wr) > width {
			if len(cur) > 0 {
				lines = append(lines, string(cur))
				cur = nil
			}
			lines = append(lines, string(wr[:width]))
			wr = wr[width:]
		}
		switch {
		case len(cur) == 0:
			cur = wr
		case len(cur)+1+len(wr) <= width:
			cur = append(append(cur, ' '), wr...)
		default:
			lines = append(lines, string(cur))
			cur = wr
		}
	}
	if len(cur) > 0 || len(lines) == 0 {
		lines = append(lines, string(cur))
	}
	return lines
}
