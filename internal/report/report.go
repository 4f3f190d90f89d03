// Package report writes generated chains to disk.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/contactkeval/option-chain/internal/chain"
)

// File names written into the output directory.
const (
	JSONFile = "chain.json"
	CSVFile  = "chain.csv"
)

// WriteJSON writes snap as indented JSON to outdir/chain.json, using the same
// field names as the /option-chain response.
//
// Parameters:
//   - snap: the generated chain
//   - outdir: existing output directory
//
// Returns:
// An error if the snapshot cannot be encoded or the file cannot be written.
func WriteJSON(snap *chain.Snapshot, outdir string) error {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outdir, JSONFile), b, 0644)
}

var csvHeaders = []string{
	"strike", "ce_price", "ce_change", "ce_oi", "ce_volume", "ce_iv",
	"pe_price", "pe_change", "pe_oi", "pe_volume", "pe_iv", "is_atm", "is_itm",
}

// WriteCSV writes one row per strike, lowest first.
func WriteCSV(snap *chain.Snapshot, outdir string) (err error) {
	f, err := os.Create(filepath.Join(outdir, CSVFile))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeaders); err != nil {
		return err
	}
	for _, leg := range snap.Strikes {
		row := []string{
			fmt.Sprintf("%.2f", leg.Strike),
			fmt.Sprintf("%.2f", leg.CEPrice),
			fmt.Sprintf("%.2f", leg.CEChange),
			strconv.FormatInt(leg.CEOI, 10),
			strconv.FormatInt(leg.CEVolume, 10),
			fmt.Sprintf("%.2f", leg.CEIV),
			fmt.Sprintf("%.2f", leg.PEPrice),
			fmt.Sprintf("%.2f", leg.PEChange),
			strconv.FormatInt(leg.PEOI, 10),
			strconv.FormatInt(leg.PEVolume, 10),
			fmt.Sprintf("%.2f", leg.PEIV),
			strconv.FormatBool(leg.IsATM),
			strconv.FormatBool(leg.IsITM),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Write creates outdir if needed and writes both files.
func Write(snap *chain.Snapshot, outdir string) error {
	if err := os.MkdirAll(outdir, 0755); err != nil {
		return fmt.Errorf("create output dir %s: %w", outdir, err)
	}
	if err := WriteJSON(snap, outdir); err != nil {
		return fmt.Errorf("write %s: %w", JSONFile, err)
	}
	if err := WriteCSV(snap, outdir); err != nil {
		return fmt.Errorf("write %s: %w", CSVFile, err)
	}
	return nil
}
