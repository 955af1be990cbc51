package service

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"jagapadi/internal/core/record"
	perr "jagapadi/internal/platform/errors"
	dom "jagapadi/internal/services/history/domain"
)

var csvHeader = []string{
	"Tanggal",
	"Waktu",
	"Nama File",
	"Hama Terdeteksi",
	"Jumlah Deteksi",
	"Tingkat Keyakinan (%)",
	"Waktu Proses (s)",
	"Sumber Data",
}

// ExportCSV writes the history as a spreadsheet friendly table
func (s *Service) ExportCSV(w io.Writer) error {
	recs := s.All()
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "Gagal mengekspor history")
	}
	for _, r := range recs {
		at := r.CapturedAt.In(s.cfg.Location)
		row := []string{
			at.Format("2/1/2006"),
			at.Format("15.04.05"),
			r.Filename,
			strings.Join(r.Labels(), "; "),
			strconv.Itoa(r.Aggregate.TotalCount),
			strconv.Itoa(r.Aggregate.AverageConfidence),
			strconv.FormatFloat(r.ProcessingSeconds, 'f', 1, 64),
			dom.SourceLabel(r.Provenance),
		}
		if err := cw.Write(row); err != nil {
			return perr.Wrap(err, perr.ErrorCodeUnknown, "Gagal mengekspor history")
		}
	}
	cw.Flush()
	return perr.WrapIf(cw.Error(), perr.ErrorCodeUnknown, "Gagal mengekspor history")
}

// ExportJSON writes the history in its wire shape
func (s *Service) ExportJSON(w io.Writer) error {
	recs := s.All()
	wires := make([]record.WireRecord, len(recs))
	for i, r := range recs {
		wires[i] = r.ToWire()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return perr.WrapIf(enc.Encode(wires), perr.ErrorCodeUnknown, "Gagal mengekspor history")
}
