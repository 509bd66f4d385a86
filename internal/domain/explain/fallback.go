package explain

import (
	"context"
	"errors"
	"fmt"
)

// DisabledExplainer stands in when no generation backend is configured.
// Every call fails, so wrapping it with FallbackExplainer yields the canned
// explanations only.
type DisabledExplainer struct{}

// Generate always fails.
func (DisabledExplainer) Generate(context.Context, ErrorInfo, ClaimInfo) (ExplanationResult, error) {
	return ExplanationResult{}, errors.New("no explainer configured")
}

// FallbackExplainer wraps another Explainer and substitutes a static,
// medically grounded explanation when the inner one fails, so operators still
// see something useful when the remote service is down. Wrapping is optional:
// without it, a failed generation simply leaves the claim out of the result
// map.
type FallbackExplainer struct {
	inner Explainer
}

// NewFallbackExplainer wraps inner with fallback behavior.
func NewFallbackExplainer(inner Explainer) *FallbackExplainer {
	return &FallbackExplainer{inner: inner}
}

// Generate delegates to the wrapped explainer and falls back on error. The
// fallback itself never fails.
func (f *FallbackExplainer) Generate(ctx context.Context, errInfo ErrorInfo, claimInfo ClaimInfo) (ExplanationResult, error) {
	result, err := f.inner.Generate(ctx, errInfo, claimInfo)
	if err == nil {
		return result, nil
	}
	return fallbackExplanation(errInfo, claimInfo, err), nil
}

// fallbackExplanation builds a canned explanation from the code reference
// tables. Confidence is lower than a generated explanation but the risk
// assessment is identical.
func fallbackExplanation(errInfo ErrorInfo, claimInfo ClaimInfo, cause error) ExplanationResult {
	cptCtx := LookupCPT(claimInfo.CPTCode)

	var explanation, reasoning, business, financial, regulatory, nextSteps string
	switch errInfo.ErrorType {
	case "Gender-Procedure Mismatch":
		explanation = fmt.Sprintf("Biologically impossible combination: %s cannot be performed on %s patients.", cptCtx.Description, claimInfo.Gender)
		reasoning = fmt.Sprintf("CPT %s is anatomically restricted to %s due to biological requirements.", claimInfo.CPTCode, cptCtx.GenderRequirement)
		business = "Immediate claim denial likely. Manual review required to prevent fraudulent payment."
		financial = fmt.Sprintf("Potential $%.0f improper payment if processed. Recovery costs estimated at $200-500.", claimInfo.ChargeAmount)
		regulatory = "CMS guidelines violation. Audit red flag requiring documentation review."
		nextSteps = "1. Verify patient demographics immediately 2. Review medical records 3. Investigate potential fraud indicators"
	case "Age-Procedure Mismatch":
		explanation = fmt.Sprintf("Age %d inappropriate for %s (typical range: %s).", claimInfo.Age, cptCtx.Description, cptCtx.TypicalAgeRange)
		reasoning = fmt.Sprintf("Medical necessity questionable. %s procedures require age-appropriate clinical indication.", cptCtx.Category)
		business = "Medical necessity review required. Potential prior authorization needed."
		financial = fmt.Sprintf("Risk of $%.0f denial. Appeal costs estimated at $150-300.", claimInfo.ChargeAmount)
		regulatory = "Age-based coverage criteria may not be met. Documentation of medical necessity required."
		nextSteps = "1. Review clinical documentation 2. Verify medical necessity 3. Consider age-appropriate alternatives"
	default:
		explanation = fmt.Sprintf("Validation error detected: %s", errInfo.Description)
		reasoning = "Medical review recommended for clinical appropriateness assessment."
		business = "Potential payment error requiring manual review and correction."
		financial = "Financial impact assessment pending detailed review."
		regulatory = "Compliance review recommended to ensure regulatory adherence."
		nextSteps = "Manual review recommended with clinical documentation verification."
	}

	riskLevel, indicators := assessRisk(errInfo, claimInfo, cptCtx)

	return ExplanationResult{
		ClaimID:            claimInfo.ClaimID,
		ErrorType:          errInfo.ErrorType,
		Explanation:        fmt.Sprintf("[Fallback] %s (generation unavailable: %v)", explanation, cause),
		MedicalReasoning:   reasoning,
		BusinessImpact:     business,
		FinancialImpact:    financial,
		RegulatoryConcerns: regulatory,
		NextSteps:          nextSteps,
		Confidence:         0.75,
		RiskLevel:          riskLevel,
		FraudIndicators:    indicators,
	}
}
