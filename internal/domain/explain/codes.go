package explain

// CPTContext describes a procedure code for prompt construction.
type CPTContext struct {
	Description       string
	Category          string
	GenderRequirement string
	TypicalAgeRange   string
	Complexity        string
	MedicalNecessity  string
}

// ICDContext describes a diagnosis code for prompt construction.
type ICDContext struct {
	Description string
	Category    string
	BodySystem  string
	Severity    string
}

var cptContexts = map[string]CPTContext{
	"59400": {
		Description:       "Routine obstetric care including antepartum care, vaginal delivery and postpartum care",
		Category:          "Obstetrics",
		GenderRequirement: "Female only",
		TypicalAgeRange:   "15-45",
		Complexity:        "High",
		MedicalNecessity:  "Pregnancy confirmation required",
	},
	"58150": {
		Description:       "Total abdominal hysterectomy with or without removal of tube(s), with or without removal of ovary(s)",
		Category:          "Gynecologic Surgery",
		GenderRequirement: "Female only",
		TypicalAgeRange:   "25-65",
		Complexity:        "High",
		MedicalNecessity:  "Documented gynecologic pathology",
	},
	"55700": {
		Description:       "Biopsy, prostate; needle or punch, single or multiple, any approach",
		Category:          "Urology",
		GenderRequirement: "Male only",
		TypicalAgeRange:   "40-80",
		Complexity:        "Moderate",
		MedicalNecessity:  "Elevated PSA or abnormal DRE",
	},
	"29827": {
		Description:       "Arthroscopy, knee, surgical; with meniscectomy (medial AND lateral, including any meniscal shaving)",
		Category:          "Orthopedic Surgery",
		GenderRequirement: "Any",
		TypicalAgeRange:   "16-65",
		Complexity:        "Moderate",
		MedicalNecessity:  "MRI-confirmed meniscal tear",
	},
	"99213": {
		Description:       "Office or other outpatient visit for the evaluation and management of an established patient",
		Category:          "Evaluation & Management",
		GenderRequirement: "Any",
		TypicalAgeRange:   "Any",
		Complexity:        "Low",
		MedicalNecessity:  "Medical condition requiring evaluation",
	},
	"77067": {
		Description:       "Screening mammography, bilateral (2-view study of each breast), including computer-aided detection",
		Category:          "Diagnostic Radiology",
		GenderRequirement: "Female only",
		TypicalAgeRange:   "40-74",
		Complexity:        "Low",
		MedicalNecessity:  "Age-appropriate screening or clinical indication",
	},
	"90460": {
		Description:       "Immunization administration through 18 years of age via any route of administration",
		Category:          "Immunizations",
		GenderRequirement: "Any",
		TypicalAgeRange:   "0-18",
		Complexity:        "Low",
		MedicalNecessity:  "Age-appropriate vaccination schedule",
	},
}

var icdContexts = map[string]ICDContext{
	"M25.561": {
		Description: "Pain in right knee",
		Category:    "Musculoskeletal",
		BodySystem:  "Knee",
		Severity:    "Mild to Moderate",
	},
	"N40.1": {
		Description: "Benign prostatic hyperplasia with lower urinary tract symptoms",
		Category:    "Genitourinary",
		BodySystem:  "Prostate",
		Severity:    "Moderate",
	},
	"Z00.00": {
		Description: "Encounter for general adult medical examination without abnormal findings",
		Category:    "Routine Care",
		BodySystem:  "General",
		Severity:    "Routine",
	},
	"O80": {
		Description: "Encounter for full-term uncomplicated delivery",
		Category:    "Obstetrics",
		BodySystem:  "Reproductive",
		Severity:    "Normal",
	},
}

// LookupCPT returns prompt context for a procedure code, with a generic
// fallback for unknown codes.
func LookupCPT(code string) CPTContext {
	if ctx, ok := cptContexts[code]; ok {
		return ctx
	}
	return CPTContext{
		Description:       "CPT code " + code,
		Category:          "Unknown",
		GenderRequirement: "Unknown",
		TypicalAgeRange:   "Unknown",
		Complexity:        "Unknown",
		MedicalNecessity:  "Documentation required",
	}
}

// LookupICD returns prompt context for a diagnosis code, with a generic
// fallback for unknown codes.
func LookupICD(code string) ICDContext {
	if ctx, ok := icdContexts[code]; ok {
		return ctx
	}
	return ICDContext{
		Description: "ICD-10 code " + code,
		Category:    "Unknown",
		BodySystem:  "Unknown",
		Severity:    "Unknown",
	}
}
