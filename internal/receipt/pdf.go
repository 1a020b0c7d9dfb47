package receipt

import (
	"bytes"

	"github.com/go-faster/errors"
	"github.com/go-pdf/fpdf"
)

// Thermal receipt page geometry, in millimetres.
const (
	pageWidth  = 80
	pageHeight = 200
	marginX    = 4
)

// PDFRenderer draws layout lines onto an 80mm thermal-format PDF page.
type PDFRenderer struct{}

// Ext returns the file extension for PDF receipts.
func (PDFRenderer) Ext() string { return ".pdf" }

// Render produces the receipt as PDF bytes.
func (PDFRenderer) Render(lines []Line) ([]byte, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "mm",
		Size:    fpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	y := 8.0
	for _, ln := range lines {
		switch ln.Kind {
		case KindCenter:
			setFont(pdf, ln)
			w := pdf.GetStringWidth(ln.Text)
			pdf.Text((pageWidth-w)/2, y, ln.Text)
			y += lineAdvance(ln)
		case KindRule:
			y += 2
			pdf.SetDashPattern([]float64{1.5, 1.5}, 0)
			pdf.Line(marginX, y, pageWidth-marginX, y)
			pdf.SetDashPattern([]float64{}, 0)
			y += 4
		case KindPair:
			setFont(pdf, ln)
			pdf.Text(marginX, y, ln.Label)
			w := pdf.GetStringWidth(ln.Value)
			pdf.Text(pageWidth-marginX-w, y, ln.Value)
			y += lineAdvance(ln)
		case KindColumns:
			setFont(pdf, ln)
			pdf.Text(marginX, y, ln.Cols[0])
			pdf.Text(45, y, ln.Cols[1])
			pdf.Text(55, y, ln.Cols[2])
			pdf.Text(67, y, ln.Cols[3])
			y += 4
		case KindBlank:
			y += 4
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, errors.Wrap(err, "draw receipt")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "render receipt pdf")
	}
	return buf.Bytes(), nil
}

func setFont(pdf *fpdf.Fpdf, ln Line) {
	style := ""
	if ln.Bold {
		style = "B"
	}
	size := 8.0
	switch {
	case ln.Big && ln.Kind == KindCenter:
		size = 14
	case ln.Big:
		size = 10
	case ln.Kind == KindColumns && !ln.Bold:
		size = 7
	case ln.Kind == KindCenter && ln.Bold:
		size = 9
	}
	pdf.SetFont("Helvetica", style, size)
}

func lineAdvance(ln Line) float64 {
	if ln.Big {
		return 6
	}
	if ln.Kind == KindCenter && ln.Bold {
		return 5
	}
	return 4
}
