package claims

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

const validCSV = `claim_id,patient_id,age,gender,cpt_code,diagnosis_code,service_date,provider_id,charge_amount
C001,P001,35,M,59400,O80,2025-06-01,PR001,3200.00
C002,P002,8,F,99213,J06.9,2025-06-02,PR002,120.50
`

func TestParseCSV_Valid(t *testing.T) {
	batch, err := ParseCSV(strings.NewReader(validCSV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("expected 2 claims, got %d", len(batch))
	}

	c := batch[0]
	if c.ClaimID != "C001" || c.PatientID != "P001" {
		t.Errorf("unexpected identifiers: %+v", c)
	}
	if c.Age != 35 {
		t.Errorf("expected age 35, got %d", c.Age)
	}
	if c.ChargeAmount != 3200.00 {
		t.Errorf("expected charge 3200.00, got %v", c.ChargeAmount)
	}
	if batch[1].ChargeAmount != 120.50 {
		t.Errorf("expected charge 120.50, got %v", batch[1].ChargeAmount)
	}
}

func TestParseCSV_ColumnOrderIndependent(t *testing.T) {
	shuffled := `charge_amount,claim_id,age,gender,cpt_code,diagnosis_code,service_date,provider_id,patient_id
3200.00,C001,35,M,59400,O80,2025-06-01,PR001,P001
`
	batch, err := ParseCSV(strings.NewReader(shuffled))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch[0].ClaimID != "C001" || batch[0].ChargeAmount != 3200.00 {
		t.Errorf("expected column lookup by name, got %+v", batch[0])
	}
}

func TestParseCSV_MissingColumn(t *testing.T) {
	noGender := `claim_id,patient_id,age,cpt_code,diagnosis_code,service_date,provider_id,charge_amount
C001,P001,35,59400,O80,2025-06-01,PR001,3200.00
`
	_, err := ParseCSV(strings.NewReader(noGender))
	if err == nil {
		t.Fatal("expected error for missing gender column")
	}
	if !strings.Contains(err.Error(), "gender") {
		t.Errorf("expected error to name the missing column, got %v", err)
	}
}

func TestParseCSV_InvalidAge(t *testing.T) {
	badAge := `claim_id,patient_id,age,gender,cpt_code,diagnosis_code,service_date,provider_id,charge_amount
C001,P001,thirty,M,59400,O80,2025-06-01,PR001,3200.00
`
	_, err := ParseCSV(strings.NewReader(badAge))
	if err == nil {
		t.Fatal("expected error for invalid age")
	}
	if !strings.Contains(err.Error(), "row 2") {
		t.Errorf("expected error to report the row, got %v", err)
	}
}

func TestParseCSV_InvalidCharge(t *testing.T) {
	badCharge := `claim_id,patient_id,age,gender,cpt_code,diagnosis_code,service_date,provider_id,charge_amount
C001,P001,35,M,59400,O80,2025-06-01,PR001,lots
`
	_, err := ParseCSV(strings.NewReader(badCharge))
	if err == nil {
		t.Fatal("expected error for invalid charge_amount")
	}
	if !strings.Contains(err.Error(), "charge_amount") {
		t.Errorf("expected error to name the field, got %v", err)
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	original, err := ParseCSV(strings.NewReader(validCSV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, original); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parsed, err := ParseCSV(&buf)
	if err != nil {
		t.Fatalf("unexpected error re-reading: %v", err)
	}
	if len(parsed) != len(original) {
		t.Fatalf("expected %d claims, got %d", len(original), len(parsed))
	}
	if parsed[0] != original[0] || parsed[1] != original[1] {
		t.Errorf("round trip changed claims: %+v vs %+v", parsed, original)
	}
}

func TestWriteFindingsCSV(t *testing.T) {
	v := NewValidator(zerolog.Nop())
	report := v.ValidateBatch([]Claim{
		{ClaimID: "C001", Age: 35, Gender: "M", CPTCode: "59400"},
	})

	var buf bytes.Buffer
	if err := WriteFindingsCSV(&buf, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus 1 finding, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "claim_id,error_type,severity") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "Gender-Procedure Mismatch") {
		t.Errorf("expected finding row, got %s", lines[1])
	}
}

func TestWriteSummaryCSV(t *testing.T) {
	v := NewValidator(zerolog.Nop())
	report := v.ValidateBatch([]Claim{
		{ClaimID: "C001", Age: 35, Gender: "M", CPTCode: "59400"},
		{ClaimID: "C002", Age: 30, Gender: "F", CPTCode: "99213"},
	})

	var buf bytes.Buffer
	if err := WriteSummaryCSV(&buf, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"metric,value", "total_claims,2", "claims_with_errors,1", "error_rate_percent,50.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected summary to contain %q, got:\n%s", want, out)
		}
	}
}
