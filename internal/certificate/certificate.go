// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package certificate renders the scannable code and the PDF certificate for
// a registered warranty and uploads both to object storage.
package certificate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
)

var (
	// ErrGateway means the object store rejected or failed an upload
	ErrGateway = errors.New("certificate storage failed")
	// ErrRender means the code or the PDF could not be produced
	ErrRender = errors.New("certificate rendering failed")
)

const (
	qrSize       = 256
	dateLayout   = "02 Jan 2006"
	contentPNG   = "image/png"
	contentPDF   = "application/pdf"
	qrImageAlias = "qr"
)

// ObjectStore stores a blob and returns the URL it is reachable at
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// Data is everything printed on a certificate
type Data struct {
	WarrantyID      string
	StoreID         string
	StoreName       string
	StoreAddress    string
	StorePhone      string
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   string
	CustomerAddress string
	Brand           string
	Model           string
	Category        string
	SerialNumber    string
	PurchaseDate    *time.Time
	Start           time.Time
	End             time.Time
}

// Artifacts are the uploaded URLs
type Artifacts struct {
	CodeURL        string
	CertificateURL string
}

// Pipeline produces and uploads certificate artifacts
type Pipeline struct {
	store ObjectStore
}

// NewPipeline creates a pipeline writing to store
func NewPipeline(store ObjectStore) *Pipeline {
	return &Pipeline{store: store}
}

// Produce renders the QR code (encoding the serial number) and the PDF, then
// uploads both.
func (p *Pipeline) Produce(ctx context.Context, d Data) (Artifacts, error) {
	png, err := RenderCode(d.SerialNumber)
	if err != nil {
		return Artifacts{}, err
	}
	pdf, err := RenderPDF(d, png)
	if err != nil {
		return Artifacts{}, err
	}

	base := fmt.Sprintf("warranties/%s/%s", d.StoreID, d.SerialNumber)

	codeURL, err := p.store.Put(ctx, base+"/code.png", bytes.NewReader(png), int64(len(png)), contentPNG)
	if err != nil {
		return Artifacts{}, fmt.Errorf("%w: upload code: %v", ErrGateway, err)
	}
	certURL, err := p.store.Put(ctx, base+"/certificate.pdf", bytes.NewReader(pdf), int64(len(pdf)), contentPDF)
	if err != nil {
		return Artifacts{CodeURL: codeURL}, fmt.Errorf("%w: upload certificate: %v", ErrGateway, err)
	}

	return Artifacts{CodeURL: codeURL, CertificateURL: certURL}, nil
}

// RenderCode encodes content as a PNG QR code
func RenderCode(content string) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: empty code content", ErrRender)
	}
	png, err := qrcode.Encode(content, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return png, nil
}

// RenderPDF lays out a one-page A4 certificate with the code image embedded
func RenderPDF(d Data, codePNG []byte) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle("Warranty Certificate "+d.SerialNumber, true)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 20)
	doc.CellFormat(0, 12, tr("Warranty Certificate"), "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 12)
	doc.CellFormat(0, 8, tr(d.StoreName), "", 1, "C", false, 0, "")
	if d.StoreAddress != "" || d.StorePhone != "" {
		doc.SetFont("Helvetica", "", 9)
		doc.CellFormat(0, 5, tr(joinNonEmpty(" | ", d.StoreAddress, d.StorePhone)), "", 1, "C", false, 0, "")
	}
	doc.Ln(6)

	section := func(title string, rows [][2]string) {
		doc.SetFont("Helvetica", "B", 13)
		doc.CellFormat(0, 8, tr(title), "B", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 11)
		for _, r := range rows {
			if r[1] == "" {
				continue
			}
			doc.CellFormat(50, 7, tr(r[0]), "", 0, "L", false, 0, "")
			doc.CellFormat(0, 7, tr(r[1]), "", 1, "L", false, 0, "")
		}
		doc.Ln(4)
	}

	purchase := ""
	if d.PurchaseDate != nil {
		purchase = d.PurchaseDate.Format(dateLayout)
	}

	section("Customer", [][2]string{
		{"Name", d.CustomerName},
		{"Phone", d.CustomerPhone},
		{"Email", d.CustomerEmail},
		{"Address", d.CustomerAddress},
	})
	section("Product", [][2]string{
		{"Brand", d.Brand},
		{"Model", d.Model},
		{"Category", d.Category},
		{"Serial number", d.SerialNumber},
		{"Purchase date", purchase},
	})
	section("Coverage", [][2]string{
		{"Valid from", d.Start.Format(dateLayout)},
		{"Valid until", d.End.Format(dateLayout)},
		{"Certificate ID", d.WarrantyID},
	})

	if len(codePNG) > 0 {
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		doc.RegisterImageOptionsReader(qrImageAlias, opts, bytes.NewReader(codePNG))
		doc.ImageOptions(qrImageAlias, 150, doc.GetY(), 40, 40, false, opts, 0, "")
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return buf.Bytes(), nil
}

func joinNonEmpty(sep string, parts ...string) string {
	var out string
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += sep
		}
		out += p
	}
	return out
}
