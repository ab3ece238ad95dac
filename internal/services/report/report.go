package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
	"github.com/winetrace/winetracego/internal/models"
)

// TraceReport is the input for one vineyard trace report
type TraceReport struct {
	Vineyard  models.Vineyard
	Processes []models.Process
	// TraceURL is encoded into the QR code printed on the report
	TraceURL string
	// GatewayURL resolves a CID to a public document link
	GatewayURL func(cid string) string
}

// Generate renders the trace report as a PDF: vineyard header, a QR code
// linking back to the live trace view, and one row per process record.
func Generate(r TraceReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, "Wine Traceability Report")
	pdf.Ln(14)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Vineyard #%d: %s", r.Vineyard.ID, r.Vineyard.Name))
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Owner: %s", r.Vineyard.Owner))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Grape variety: %s", r.Vineyard.GrapeVariety))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Location: %s, %s", r.Vineyard.Latitude, r.Vineyard.Longitude))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Registered: %s (block %d)",
		r.Vineyard.RegisteredAt.Format("2006-01-02 15:04 UTC"), r.Vineyard.BlockNumber))
	pdf.Ln(10)

	// QR code linking to the live trace view
	if r.TraceURL != "" {
		qrPng, err := qrcode.Encode(r.TraceURL, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("encode trace QR: %w", err)
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
		pdf.RegisterImageOptionsReader("trace_qr", opts, bytes.NewReader(qrPng))
		pdf.ImageOptions("trace_qr", 160, 15, 35, 35, false, opts, 0, "")
	}

	// Process records
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Production processes (%d)", len(r.Processes)))
	pdf.Ln(10)

	if len(r.Processes) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.Cell(0, 6, "No process records on chain for this vineyard.")
		pdf.Ln(6)
	}

	for _, p := range r.Processes {
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, fmt.Sprintf("#%d  %s", p.ID, p.Title))
		pdf.Ln(6)

		pdf.SetFont("Arial", "", 9)
		if p.Description != "" {
			pdf.MultiCell(0, 5, p.Description, "", "L", false)
		}
		pdf.Cell(0, 5, fmt.Sprintf("File: %s (%s)", p.FileName, p.FileType))
		pdf.Ln(5)
		if r.GatewayURL != nil && p.IPFSCid != "" {
			pdf.SetTextColor(0, 0, 200)
			pdf.CellFormat(0, 5, r.GatewayURL(p.IPFSCid), "", 1, "L", false, 0, r.GatewayURL(p.IPFSCid))
			pdf.SetTextColor(0, 0, 0)
		}
		pdf.Cell(0, 5, fmt.Sprintf("Recorded %s by %s (block %d)",
			p.CreatedAt.Format("2006-01-02 15:04 UTC"), p.CreatedBy, p.BlockNumber))
		pdf.Ln(8)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render trace report: %w", err)
	}
	return buf.Bytes(), nil
}
