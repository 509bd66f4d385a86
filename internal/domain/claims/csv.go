package claims

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// requiredColumns are the CSV columns a claims file must carry. Extra
// columns are ignored.
var requiredColumns = []string{
	"claim_id", "patient_id", "age", "gender", "cpt_code",
	"diagnosis_code", "service_date", "provider_id", "charge_amount",
}

// ParseCSV reads a claims CSV with a header row into a slice of Claims.
// It fails on a missing required column or an unparseable numeric field,
// reporting the offending row.
func ParseCSV(r io.Reader) ([]Claim, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	var claims []Claim
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		age, err := strconv.Atoi(record[index["age"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid age %q", row, record[index["age"]])
		}
		charge, err := strconv.ParseFloat(record[index["charge_amount"]], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid charge_amount %q", row, record[index["charge_amount"]])
		}

		claims = append(claims, Claim{
			ClaimID:       record[index["claim_id"]],
			PatientID:     record[index["patient_id"]],
			Age:           age,
			Gender:        record[index["gender"]],
			CPTCode:       record[index["cpt_code"]],
			DiagnosisCode: record[index["diagnosis_code"]],
			ServiceDate:   record[index["service_date"]],
			ProviderID:    record[index["provider_id"]],
			ChargeAmount:  charge,
		})
	}
	return claims, nil
}

// WriteCSV writes claims as a CSV with the standard header.
func WriteCSV(w io.Writer, claims []Claim) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(requiredColumns); err != nil {
		return err
	}
	for _, c := range claims {
		record := []string{
			c.ClaimID,
			c.PatientID,
			strconv.Itoa(c.Age),
			c.Gender,
			c.CPTCode,
			c.DiagnosisCode,
			c.ServiceDate,
			c.ProviderID,
			strconv.FormatFloat(c.ChargeAmount, 'f', 2, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteFindingsCSV exports the detailed findings of a report.
func WriteFindingsCSV(w io.Writer, report *BatchReport) error {
	writer := csv.NewWriter(w)
	header := []string{"claim_id", "error_type", "severity", "description", "recommendation", "confidence"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, f := range report.Findings {
		record := []string{
			f.ClaimID,
			string(f.ErrorType),
			string(f.Severity),
			f.Description,
			f.Recommendation,
			strconv.FormatFloat(f.Confidence, 'f', 2, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSummaryCSV exports the report summary as metric/value rows.
func WriteSummaryCSV(w io.Writer, report *BatchReport) error {
	writer := csv.NewWriter(w)
	rows := [][]string{
		{"metric", "value"},
		{"total_claims", strconv.Itoa(report.Summary.TotalClaims)},
		{"claims_with_errors", strconv.Itoa(report.Summary.ClaimsWithErrors)},
		{"error_rate_percent", strconv.FormatFloat(report.Summary.ErrorRatePercent, 'f', 2, 64)},
		{"total_errors", strconv.Itoa(report.Summary.TotalErrors)},
		{"duplicate_groups", strconv.Itoa(len(report.Duplicates))},
		{"processing_time_seconds", strconv.FormatFloat(report.Summary.ProcessingTime.Seconds(), 'f', 3, 64)},
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
