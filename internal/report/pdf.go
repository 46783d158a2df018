package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/convenios/prioridades/internal/priority"
)

// A4 portrait in points, origin lower left.
const (
	pageWidth    = 595.0
	pageHeight   = 842.0
	marginLeft   = 50.0
	marginRight  = 50.0
	marginTop    = 50.0
	marginBottom = 60.0
	lineHeight   = 14.0
	nameColChars = 70
	descColChars = 95
)

var severityColors = map[priority.Severity]string{
	priority.SeverityRed:    "#B40000",
	priority.SeverityYellow: "#B48C00",
	priority.SeverityGreen:  "#006400",
}

type fontSpec struct {
	Name string  `json:"name"`
	Size float64 `json:"size"`
	Col  string  `json:"col,omitempty"`
}

type textBox struct {
	Value string     `json:"value"`
	Pos   [2]float64 `json:"pos"`
	Align string     `json:"align,omitempty"`
	Font  fontSpec   `json:"font"`
}

type pageContent struct {
	Text []textBox `json:"text"`
}

type page struct {
	Content pageContent `json:"content"`
}

// pageDescription is the JSON document consumed by pdfcpu's create command.
type pageDescription struct {
	Paper  string           `json:"paper"`
	Origin string           `json:"origin"`
	Pages  map[string]*page `json:"pages"`
}

var (
	fontRegular = fontSpec{Name: "Helvetica", Size: 10}
	fontBold    = fontSpec{Name: "Helvetica-Bold", Size: 10}
	fontItalic  = fontSpec{Name: "Helvetica-Oblique", Size: 10}
	fontSmall   = fontSpec{Name: "Helvetica", Size: 8, Col: "#969696"}
)

// layout places the report on as many pages as needed. Every page repeats
// the office header and carries a "Página x de y" footer.
type layout struct {
	r     *Report
	pages []*page
	y     float64
}

func (l *layout) newPage() {
	p := &page{}
	l.pages = append(l.pages, p)
	l.y = pageHeight - marginTop
	for i, h := range l.r.Header {
		f := fontRegular
		if i == 0 {
			f = fontSpec{Name: "Helvetica-Bold", Size: 14}
		}
		l.add(textBox{Value: h, Pos: [2]float64{pageWidth / 2, l.y}, Align: "center", Font: f})
		l.y -= lineHeight
	}
	l.y -= lineHeight
}

func (l *layout) add(t textBox) {
	p := l.pages[len(l.pages)-1]
	p.Content.Text = append(p.Content.Text, t)
}

// need starts a new page when fewer than n lines fit on the current one.
func (l *layout) need(n int) {
	if l.y-float64(n)*lineHeight < marginBottom {
		l.newPage()
	}
}

func (l *layout) line(value string, f fontSpec) {
	l.need(1)
	l.add(textBox{Value: value, Pos: [2]float64{marginLeft, l.y}, Font: f})
	l.y -= lineHeight
}

func (l *layout) section(title string) {
	l.y -= lineHeight / 2
	l.need(2)
	l.line(strings.ToUpper(title), fontBold)
}

func buildDescription(r *Report) *pageDescription {
	l := &layout{r: r}
	l.newPage()
	l.add(textBox{Value: Title, Pos: [2]float64{pageWidth / 2, l.y}, Align: "center", Font: fontSpec{Name: "Helvetica-Bold", Size: 12}})
	l.y -= 2 * lineHeight

	l.section(SectionData)
	l.line("Protocolo: "+r.Protocol, fontRegular)
	l.line("Nº Prioridade: "+r.Number, fontRegular)
	l.line("Data Liberação: "+r.ReleaseDate, fontRegular)
	l.line("Prazo Máximo: "+r.Deadline, fontSpec{Name: "Helvetica", Size: 10, Col: "#B40000"})
	l.line("Descrição:", fontBold)
	for _, s := range wrap(r.Description, descColChars) {
		l.line(s, fontRegular)
	}

	l.section(SectionStatus)
	l.line("Situação Atual: "+r.Situation, fontRegular)
	l.line("Dias Restantes: "+r.DaysRemaining, fontRegular)
	l.line(fmt.Sprintf("Progresso (%d%%): %s", r.Percentage, progressBar(r.Percentage, 50)), fontRegular)

	l.section(SectionDocs)
	if len(r.Rows) == 0 {
		l.line(NoDocuments, fontItalic)
	} else {
		l.need(1)
		l.add(textBox{Value: "DOCUMENTO", Pos: [2]float64{marginLeft, l.y}, Font: fontBold})
		l.add(textBox{Value: "STATUS", Pos: [2]float64{pageWidth - marginRight, l.y}, Align: "right", Font: fontBold})
		l.y -= lineHeight
	}
	for _, row := range r.Rows {
		lines := wrap(fmt.Sprintf("%d. %s", row.Number, row.Name), nameColChars)
		l.need(len(lines))
		status := fontSpec{Name: "Helvetica", Size: 10, Col: severityColors[row.Severity]}
		l.add(textBox{Value: row.Status, Pos: [2]float64{pageWidth - marginRight, l.y}, Align: "right", Font: status})
		for _, s := range lines {
			l.add(textBox{Value: s, Pos: [2]float64{marginLeft, l.y}, Font: fontRegular})
			l.y -= lineHeight
		}
	}

	total := len(l.pages)
	desc := &pageDescription{Paper: "A4P", Origin: "LowerLeft", Pages: make(map[string]*page, total)}
	for i, p := range l.pages {
		p.Content.Text = append(p.Content.Text,
			textBox{Value: r.Footer(), Pos: [2]float64{marginLeft, marginBottom / 2}, Font: fontSmall},
			textBox{Value: fmt.Sprintf("Página %d de %d", i+1, total), Pos: [2]float64{pageWidth - marginRight, marginBottom / 2}, Align: "right", Font: fontSmall},
		)
		desc.Pages[strconv.Itoa(i+1)] = p
	}
	return desc
}

var disableConfigDir sync.Once

// RenderPDF writes the report as a PDF document.
func RenderPDF(w io.Writer, r *Report) error {
	disableConfigDir.Do(api.DisableConfigDir)
	desc, err := json.Marshal(buildDescription(r))
	if err != nil {
		return fmt.Errorf("encode page description: %w", err)
	}
	conf := model.NewDefaultConfiguration()
	if err := api.Create(nil, bytes.NewReader(desc), w, conf); err != nil {
		return fmt.Errorf("create pdf: %w", err)
	}
	return nil
}

// Render dispatches on f.
func Render(w io.Writer, r *Report, f Format) error {
	if f == FormatText {
		return RenderText(w, r)
	}
	return RenderPDF(w, r)
}
