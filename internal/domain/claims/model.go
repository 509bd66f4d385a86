// Package claims implements the pre-payment claim validation engine: the
// claim data model, the fixed rule catalogue, and the batch validator that
// aggregates findings, detects duplicate services and computes summary
// statistics.
package claims

import "time"

// Severity indicates how urgent a finding is.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// ErrorType classifies a detected claim problem.
type ErrorType string

const (
	ErrorGenderProcedure  ErrorType = "Gender-Procedure Mismatch"
	ErrorAgeProcedure     ErrorType = "Age-Procedure Mismatch"
	ErrorAnatomicalLogic  ErrorType = "Anatomical Logic Error"
	ErrorSeverityMismatch ErrorType = "Severity Mismatch"
	ErrorDuplicateService ErrorType = "Duplicate Service"
)

// Claim is a single healthcare claim record as ingested. Claims are
// read-only to the validation engine; the caller owns the batch.
type Claim struct {
	ClaimID       string  `json:"claim_id"`
	PatientID     string  `json:"patient_id"`
	Age           int     `json:"age"`
	Gender        string  `json:"gender"`
	CPTCode       string  `json:"cpt_code"`
	DiagnosisCode string  `json:"diagnosis_code"`
	ServiceDate   string  `json:"service_date"`
	ProviderID    string  `json:"provider_id"`
	ChargeAmount  float64 `json:"charge_amount"`
}

// Finding is the output of one rule firing on one claim. Findings are
// immutable once created.
type Finding struct {
	ClaimID        string    `json:"claim_id"`
	ErrorType      ErrorType `json:"error_type"`
	Severity       Severity  `json:"severity"`
	Description    string    `json:"description"`
	Recommendation string    `json:"recommendation"`
	Confidence     float64   `json:"confidence"`
}

// DuplicateGroup describes a (patient, service date, procedure) key billed
// more than once within a batch. Computed by the cross-claim duplicate pass,
// not by a per-claim rule.
type DuplicateGroup struct {
	PatientID      string    `json:"patient_id"`
	ServiceDate    string    `json:"service_date"`
	CPTCode        string    `json:"cpt_code"`
	Count          int       `json:"count"`
	ErrorType      ErrorType `json:"error_type"`
	Severity       Severity  `json:"severity"`
	Description    string    `json:"description"`
	Recommendation string    `json:"recommendation"`
}

// BatchSummary holds the aggregate statistics for one validation run.
type BatchSummary struct {
	TotalClaims      int               `json:"total_claims"`
	ClaimsWithErrors int               `json:"claims_with_errors"`
	ErrorRatePercent float64           `json:"error_rate_percent"`
	TotalErrors      int               `json:"total_errors"`
	ProcessingTime   time.Duration     `json:"processing_time_ms"`
	ErrorsByType     map[ErrorType]int `json:"errors_by_type"`
	ErrorsBySeverity map[Severity]int  `json:"errors_by_severity"`
}

// BatchReport is the full result of validating one batch of claims.
type BatchReport struct {
	Findings   []Finding        `json:"findings"`
	Duplicates []DuplicateGroup `json:"duplicates"`
	Summary    BatchSummary     `json:"summary"`
}
