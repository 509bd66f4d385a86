package claims

import "fmt"

// Code lists the rules test against. These are reference data, not engine
// behavior; swapping them for a payer-specific set does not change the rules.
var (
	femaleOnlyProcedures = map[string]bool{
		"59400": true, "58150": true, "76801": true, "81025": true,
	}
	maleOnlyProcedures = map[string]bool{
		"55700": true, "55250": true, "54150": true,
	}

	adultOnlyProcedures = map[string]bool{
		"55700": true, "77067": true, "45378": true, "99397": true,
	}
	pediatricOnlyProcedures = map[string]bool{
		"90460": true, "99381": true, "99382": true,
	}

	emergencyProcedures = map[string]bool{
		"36415": true, "99281": true, "99291": true, "99283": true,
	}
	routineDiagnoses = map[string]bool{
		"Z00.00": true, "Z12.11": true, "Z01.419": true,
	}

	// Body-region tables for the anatomical consistency check.
	procedureRegions = map[string]string{
		"29827": "knee", "27447": "knee", "27486": "knee",
		"29826": "shoulder", "23472": "shoulder", "29807": "shoulder",
		"28285": "foot", "28296": "foot", "28306": "foot",
	}
	diagnosisRegions = map[string]string{
		"M25.561": "knee", "M17.11": "knee", "S83.511A": "knee",
		"M25.511": "shoulder", "M75.30": "shoulder", "S43.006A": "shoulder",
		"M25.571": "foot", "M21.371": "foot", "S92.001A": "foot",
	}
)

// Rule is one pure validation check over a single claim. A rule returns the
// findings it produced, or an error when it could not evaluate the claim at
// all; the validator logs rule errors and keeps going so one broken rule
// never blocks the rest of the catalogue.
type Rule struct {
	Name  string
	Check func(Claim) ([]Finding, error)
}

// defaultRules returns the fixed rule catalogue in declaration order. The
// order is part of the engine contract: findings for one claim are always
// reported in this order.
func defaultRules() []Rule {
	return []Rule{
		{Name: "gender-procedure", Check: checkGenderProcedure},
		{Name: "age-procedure", Check: checkAgeProcedure},
		{Name: "anatomical-logic", Check: checkAnatomicalLogic},
		{Name: "severity-mismatch", Check: checkSeverityMismatch},
	}
}

func checkGenderProcedure(c Claim) ([]Finding, error) {
	var findings []Finding

	if c.Gender == "M" && femaleOnlyProcedures[c.CPTCode] {
		findings = append(findings, Finding{
			ClaimID:        c.ClaimID,
			ErrorType:      ErrorGenderProcedure,
			Severity:       SeverityHigh,
			Description:    fmt.Sprintf("Male patient assigned female-only procedure %s", c.CPTCode),
			Recommendation: "Verify patient gender or correct procedure code",
			Confidence:     0.95,
		})
	}
	if c.Gender == "F" && maleOnlyProcedures[c.CPTCode] {
		findings = append(findings, Finding{
			ClaimID:        c.ClaimID,
			ErrorType:      ErrorGenderProcedure,
			Severity:       SeverityHigh,
			Description:    fmt.Sprintf("Female patient assigned male-only procedure %s", c.CPTCode),
			Recommendation: "Verify patient gender or correct procedure code",
			Confidence:     0.95,
		})
	}
	return findings, nil
}

func checkAgeProcedure(c Claim) ([]Finding, error) {
	var findings []Finding

	if c.Age < 18 && adultOnlyProcedures[c.CPTCode] {
		findings = append(findings, Finding{
			ClaimID:        c.ClaimID,
			ErrorType:      ErrorAgeProcedure,
			Severity:       SeverityHigh,
			Description:    fmt.Sprintf("Patient age %d inappropriate for adult procedure %s", c.Age, c.CPTCode),
			Recommendation: "Verify patient age or select age-appropriate procedure",
			Confidence:     0.90,
		})
	}
	if c.Age >= 18 && pediatricOnlyProcedures[c.CPTCode] {
		findings = append(findings, Finding{
			ClaimID:        c.ClaimID,
			ErrorType:      ErrorAgeProcedure,
			Severity:       SeverityMedium,
			Description:    fmt.Sprintf("Adult patient (age %d) assigned pediatric procedure %s", c.Age, c.CPTCode),
			Recommendation: "Consider adult-equivalent procedure code",
			Confidence:     0.85,
		})
	}
	return findings, nil
}

// checkAnatomicalLogic fires only when both codes map to a known body region
// and the regions disagree. Unknown codes never fire.
func checkAnatomicalLogic(c Claim) ([]Finding, error) {
	procRegion, procKnown := procedureRegions[c.CPTCode]
	diagRegion, diagKnown := diagnosisRegions[c.DiagnosisCode]
	if !procKnown || !diagKnown || procRegion == diagRegion {
		return nil, nil
	}

	return []Finding{{
		ClaimID:        c.ClaimID,
		ErrorType:      ErrorAnatomicalLogic,
		Severity:       SeverityHigh,
		Description:    fmt.Sprintf("%s procedure (%s) does not match %s diagnosis (%s)", titleCase(procRegion), c.CPTCode, diagRegion, c.DiagnosisCode),
		Recommendation: "Verify anatomical consistency between procedure and diagnosis",
		Confidence:     0.92,
	}}, nil
}

func checkSeverityMismatch(c Claim) ([]Finding, error) {
	if !emergencyProcedures[c.CPTCode] || !routineDiagnoses[c.DiagnosisCode] {
		return nil, nil
	}

	return []Finding{{
		ClaimID:        c.ClaimID,
		ErrorType:      ErrorSeverityMismatch,
		Severity:       SeverityMedium,
		Description:    fmt.Sprintf("Emergency procedure (%s) inappropriate for routine diagnosis (%s)", c.CPTCode, c.DiagnosisCode),
		Recommendation: "Verify medical necessity or use appropriate procedure code",
		Confidence:     0.80,
	}}, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
