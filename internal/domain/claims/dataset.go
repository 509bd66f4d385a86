package claims

import (
	"fmt"
	"math/rand"
)

var (
	femaleOnlyList    = []string{"59400", "58150", "76801", "81025"}
	maleOnlyList      = []string{"55700", "55250", "54150"}
	adultOnlyList     = []string{"55700", "77067", "45378", "99397"}
	pediatricOnlyList = []string{"90460", "99381", "99382"}
	emergencyList     = []string{"36415", "99281", "99291", "99283"}
	routineDiagList   = []string{"Z00.00", "Z12.11", "Z01.419"}

	kneeProcedures     = []string{"29827", "27447", "27486"}
	shoulderProcedures = []string{"29826", "23472", "29807"}
	footProcedures     = []string{"28285", "28296", "28306"}
	kneeDiagnoses      = []string{"M25.561", "M17.11", "S83.511A"}
	shoulderDiagnoses  = []string{"M25.511", "M75.30", "S43.006A"}
	footDiagnoses      = []string{"M25.571", "M21.371", "S92.001A"}
)

// GenerateDataset produces a synthetic claims batch seeded with known
// violations of every rule plus a set of clean claims, for demos and tests.
// The same seed always produces the same batch.
func GenerateDataset(seed int64) []Claim {
	rng := rand.New(rand.NewSource(seed))
	var batch []Claim
	nextID := 1000

	add := func(age int, gender, cpt, diagnosis, serviceDate string, charge float64) {
		batch = append(batch, Claim{
			ClaimID:       fmt.Sprintf("%d", nextID),
			PatientID:     fmt.Sprintf("P%d", nextID),
			Age:           age,
			Gender:        gender,
			CPTCode:       cpt,
			DiagnosisCode: diagnosis,
			ServiceDate:   serviceDate,
			ProviderID:    fmt.Sprintf("PR%d", 100+rng.Intn(900)),
			ChargeAmount:  charge,
		})
		nextID++
	}
	pick := func(list []string) string { return list[rng.Intn(len(list))] }

	// Gender-procedure mismatches.
	for i := 0; i < 4; i++ {
		add(25+rng.Intn(21), "M", pick(femaleOnlyList), pick([]string{"Z00.00", "R10.9", "M79.3"}), "2025-06-15", float64(200+rng.Intn(1801)))
	}
	for i := 0; i < 4; i++ {
		add(20+rng.Intn(31), "F", pick(maleOnlyList), pick([]string{"Z00.00", "R31.9", "N39.0"}), "2025-06-16", float64(300+rng.Intn(1201)))
	}

	// Age-procedure mismatches.
	for i := 0; i < 3; i++ {
		add(5+rng.Intn(12), pick([]string{"M", "F"}), pick(adultOnlyList), "Z00.129", "2025-06-17", float64(150+rng.Intn(651)))
	}
	for i := 0; i < 3; i++ {
		add(45+rng.Intn(31), pick([]string{"M", "F"}), pick(pediatricOnlyList), pick([]string{"Z00.00", "Z01.419"}), "2025-06-18", float64(100+rng.Intn(201)))
	}

	// Anatomical mismatches: procedures from one region, diagnoses from another.
	anatomical := []struct {
		procedures []string
		diagnoses  []string
	}{
		{kneeProcedures, shoulderDiagnoses},
		{shoulderProcedures, footDiagnoses},
		{footProcedures, kneeDiagnoses},
	}
	for _, pair := range anatomical {
		for i := 0; i < 2; i++ {
			add(25+rng.Intn(41), pick([]string{"M", "F"}), pick(pair.procedures), pick(pair.diagnoses), "2025-06-19", float64(500+rng.Intn(2501)))
		}
	}

	// Severity mismatches.
	for i := 0; i < 4; i++ {
		add(20+rng.Intn(51), pick([]string{"M", "F"}), pick(emergencyList), pick(routineDiagList), "2025-06-20", float64(800+rng.Intn(4201)))
	}

	// Duplicate services: same patient, same day, same procedure, three times.
	for i := 0; i < 3; i++ {
		batch = append(batch, Claim{
			ClaimID:       fmt.Sprintf("%d", nextID),
			PatientID:     "P9999",
			Age:           45,
			Gender:        "F",
			CPTCode:       "99213",
			DiagnosisCode: "M25.561",
			ServiceDate:   "2025-06-21",
			ProviderID:    "PR123",
			ChargeAmount:  250,
		})
		nextID++
	}

	// Clean claims for contrast.
	clean := []struct {
		age       int
		gender    string
		cpt       string
		diagnosis string
	}{
		{30, "F", "99213", "M25.561"},
		{55, "M", "55700", "N40.1"},
		{8, "M", "90460", "Z00.129"},
		{42, "F", "77067", "Z12.31"},
		{35, "M", "29827", "M25.561"},
		{28, "F", "99214", "F32.9"},
	}
	for _, c := range clean {
		add(c.age, c.gender, c.cpt, c.diagnosis, "2025-06-22", float64(150+rng.Intn(1051)))
	}

	return batch
}
