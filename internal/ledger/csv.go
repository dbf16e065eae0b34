package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// CSV schema versions. V1 is the legacy 8-column layout from early runs;
// V2 is the current 14-column layout. New rows are always written as V2.
const (
	CSVVersion1 = 1
	CSVVersion2 = 2
)

var csvHeaderV2 = []string{
	"Date", "Sport", "Match", "Pick",
	"Exchange_Price", "Decimal_Odds", "True_Prob", "EV",
	"Stake", "Expected_Profit", "Match_Score", "Link",
	"Result", "Actual_Profit",
}

var csvHeaderV1 = []string{
	"Date", "Match", "Pick", "Price", "Prob", "Stake", "Result", "Profit",
}

const csvDateLayout = "2006-01-02 15:04"

// CSVLog appends recommendation rows to a human-reviewable CSV file.
type CSVLog struct {
	path string
}

// NewCSVLog creates a log writer for path. The file is created with a V2
// header on first append.
func NewCSVLog(path string) *CSVLog {
	return &CSVLog{path: path}
}

// Append writes one row per record. The header is only written when the
// file does not exist yet.
func (l *CSVLog) Append(records []Record) error {
	if len(records) == 0 {
		return nil
	}

	_, statErr := os.Stat(l.path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening csv log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(csvHeaderV2); err != nil {
			return fmt.Errorf("writing csv header: %w", err)
		}
	}
	for _, rec := range records {
		if err := w.Write(csvRow(rec)); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing csv log: %w", err)
	}
	return nil
}

func csvRow(rec Record) []string {
	profit := ""
	if rec.ActualProfit != nil {
		profit = fmt.Sprintf("%.2f", *rec.ActualProfit)
	}
	return []string{
		rec.CreatedAt.Format(csvDateLayout),
		rec.Sport,
		rec.Event,
		rec.Pick,
		fmt.Sprintf("%.4f", rec.ExchangePrice),
		fmt.Sprintf("%.2f", rec.DecimalOdds),
		fmt.Sprintf("%.4f", rec.FairProb),
		fmt.Sprintf("%.4f", rec.EV),
		fmt.Sprintf("%.2f", rec.Stake),
		fmt.Sprintf("%.2f", rec.ExpectedProfit),
		strconv.Itoa(rec.MatchScore),
		rec.Link,
		rec.Result,
		profit,
	}
}

// DetectVersion identifies which schema a CSV header belongs to.
func DetectVersion(header []string) (int, error) {
	if equalHeader(header, csvHeaderV2) {
		return CSVVersion2, nil
	}
	if equalHeader(header, csvHeaderV1) {
		return CSVVersion1, nil
	}
	return 0, fmt.Errorf("unrecognized csv header with %d columns", len(header))
}

func equalHeader(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// MigrateLegacy rewrites a V1 file in place to the V2 schema and returns
// the number of migrated rows. A file already on V2 is left untouched.
// Columns V1 never carried stay empty; the decimal odds column is rebuilt
// from the price where possible.
func MigrateLegacy(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening csv log: %w", err)
	}

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	f.Close()
	if err != nil {
		return 0, fmt.Errorf("reading csv log: %w", err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("csv log %s is empty", path)
	}

	version, err := DetectVersion(rows[0])
	if err != nil {
		return 0, err
	}
	if version == CSVVersion2 {
		return 0, nil
	}

	migrated := make([][]string, 0, len(rows))
	migrated = append(migrated, csvHeaderV2)
	for _, row := range rows[1:] {
		if len(row) != len(csvHeaderV1) {
			return 0, fmt.Errorf("legacy row has %d columns, want %d", len(row), len(csvHeaderV1))
		}
		migrated = append(migrated, upgradeRow(row))
	}

	tmp := path + ".migrating"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("creating migrated csv: %w", err)
	}

	w := csv.NewWriter(out)
	if err := w.WriteAll(migrated); err != nil {
		out.Close()
		os.Remove(tmp)
		return 0, fmt.Errorf("writing migrated csv: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("closing migrated csv: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("replacing csv log: %w", err)
	}

	return len(migrated) - 1, nil
}

// upgradeRow maps one V1 row onto the V2 layout:
// Date,Match,Pick,Price,Prob,Stake,Result,Profit.
func upgradeRow(row []string) []string {
	date, event, pick := row[0], row[1], row[2]
	price, prob, stake := row[3], row[4], row[5]
	result, profit := row[6], row[7]

	odds := ""
	if p, err := strconv.ParseFloat(price, 64); err == nil && p > 0 {
		odds = fmt.Sprintf("%.2f", 1/p)
	}

	return []string{
		date, "", event, pick,
		price, odds, prob, "",
		stake, "", "", "",
		result, profit,
	}
}
