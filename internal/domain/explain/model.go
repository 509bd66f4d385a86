// Package explain produces rich explanations for flagged claims. It wraps an
// external generation service behind the Explainer contract, memoizes results
// in a TTL+LRU cache, and drives batches of explanation requests through a
// fixed-size worker pool.
package explain

import (
	"github.com/claimguard/claimguard/internal/domain/claims"
)

// ErrorInfo carries the validation finding fields an explanation is about.
type ErrorInfo struct {
	ErrorType   string `json:"error_type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// ClaimInfo carries the claim attributes an explanation is about. The claim
// identifier travels along for reporting but does not participate in cache
// fingerprinting: explanations describe the clinical situation, not the
// individual claim.
type ClaimInfo struct {
	ClaimID       string  `json:"claim_id"`
	Age           int     `json:"age"`
	Gender        string  `json:"gender"`
	CPTCode       string  `json:"cpt_code"`
	DiagnosisCode string  `json:"diagnosis_code"`
	ChargeAmount  float64 `json:"charge_amount"`
}

// ExplanationResult is the structured output of the explanation generator.
type ExplanationResult struct {
	ClaimID            string   `json:"claim_id"`
	ErrorType          string   `json:"error_type"`
	Explanation        string   `json:"explanation"`
	MedicalReasoning   string   `json:"medical_reasoning"`
	BusinessImpact     string   `json:"business_impact"`
	FinancialImpact    string   `json:"financial_impact"`
	RegulatoryConcerns string   `json:"regulatory_concerns"`
	NextSteps          string   `json:"next_steps"`
	Confidence         float64  `json:"confidence"`
	RiskLevel          string   `json:"risk_level"`
	FraudIndicators    []string `json:"fraud_indicators,omitempty"`
}

// ErrorInfoFromFinding projects a validation finding onto the explanation
// request shape.
func ErrorInfoFromFinding(f claims.Finding) ErrorInfo {
	return ErrorInfo{
		ErrorType:   string(f.ErrorType),
		Description: f.Description,
		Severity:    string(f.Severity),
	}
}

// ClaimInfoFromClaim projects a claim onto the explanation request shape.
func ClaimInfoFromClaim(c claims.Claim) ClaimInfo {
	return ClaimInfo{
		ClaimID:       c.ClaimID,
		Age:           c.Age,
		Gender:        c.Gender,
		CPTCode:       c.CPTCode,
		DiagnosisCode: c.DiagnosisCode,
		ChargeAmount:  c.ChargeAmount,
	}
}
