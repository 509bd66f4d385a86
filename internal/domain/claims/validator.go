package claims

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// Validator runs the rule catalogue over claims. The whole batch pass is
// single-threaded: the rules are cheap, pure computations with no I/O.
type Validator struct {
	rules  []Rule
	logger zerolog.Logger
}

// NewValidator creates a Validator with the default rule catalogue.
func NewValidator(logger zerolog.Logger) *Validator {
	return &Validator{
		rules:  defaultRules(),
		logger: logger,
	}
}

// Validate runs every per-claim rule against one claim and returns the
// concatenated findings in rule-declaration order. A rule that fails to
// evaluate is logged and contributes nothing; the remaining rules still run.
func (v *Validator) Validate(claim Claim) []Finding {
	var findings []Finding
	for _, rule := range v.rules {
		ruleFindings, err := rule.Check(claim)
		if err != nil {
			v.logger.Warn().
				Str("rule", rule.Name).
				Str("claim_id", claim.ClaimID).
				Err(err).
				Msg("validation rule failed")
			continue
		}
		findings = append(findings, ruleFindings...)
	}
	return findings
}

// ValidateBatch validates every claim, runs the cross-claim duplicate pass
// and computes summary statistics. The output is a pure function of the
// input batch: the same claims always produce the same report (modulo the
// measured processing time).
func (v *Validator) ValidateBatch(batch []Claim) *BatchReport {
	start := time.Now()

	var findings []Finding
	for _, claim := range batch {
		findings = append(findings, v.Validate(claim)...)
	}

	duplicates := v.checkDuplicates(batch)

	claimsSeen := make(map[string]bool)
	byType := make(map[ErrorType]int)
	bySeverity := make(map[Severity]int)
	for _, f := range findings {
		claimsSeen[f.ClaimID] = true
		byType[f.ErrorType]++
		bySeverity[f.Severity]++
	}

	errorRate := 0.0
	if len(batch) > 0 {
		errorRate = float64(len(claimsSeen)) / float64(len(batch)) * 100
	}

	return &BatchReport{
		Findings:   findings,
		Duplicates: duplicates,
		Summary: BatchSummary{
			TotalClaims:      len(batch),
			ClaimsWithErrors: len(claimsSeen),
			ErrorRatePercent: math.Round(errorRate*100) / 100,
			TotalErrors:      len(findings),
			ProcessingTime:   time.Since(start),
			ErrorsByType:     byType,
			ErrorsBySeverity: bySeverity,
		},
	}
}

type duplicateKey struct {
	patientID   string
	serviceDate string
	cptCode     string
}

// checkDuplicates groups the batch by (patient, service date, procedure) and
// reports one DuplicateGroup per key billed more than once. Groups are
// returned in first-occurrence order so batch reports stay deterministic.
func (v *Validator) checkDuplicates(batch []Claim) []DuplicateGroup {
	counts := make(map[duplicateKey]int)
	var order []duplicateKey
	for _, claim := range batch {
		key := duplicateKey{claim.PatientID, claim.ServiceDate, claim.CPTCode}
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
	}

	var groups []DuplicateGroup
	for _, key := range order {
		count := counts[key]
		if count <= 1 {
			continue
		}
		groups = append(groups, DuplicateGroup{
			PatientID:      key.patientID,
			ServiceDate:    key.serviceDate,
			CPTCode:        key.cptCode,
			Count:          count,
			ErrorType:      ErrorDuplicateService,
			Severity:       SeverityMedium,
			Description:    fmt.Sprintf("Procedure %s billed %d times for patient %s on %s", key.cptCode, count, key.patientID, key.serviceDate),
			Recommendation: "Review for legitimate multiple procedures or billing error",
		})
	}
	return groups
}
