package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Explainer is the external explanation generation service. Implementations
// may fail for any reason (network, quota, malformed response); callers treat
// every failure identically.
type Explainer interface {
	Generate(ctx context.Context, errInfo ErrorInfo, claimInfo ClaimInfo) (ExplanationResult, error)
}

const (
	defaultModel       = "gpt-4o-mini"
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultMaxTokens   = 800
	defaultTemperature = 0.1
	defaultHTTPTimeout = 30 * time.Second

	maxRetries     = 3
	retryBaseDelay = 200 * time.Millisecond
	retryMaxDelay  = 5 * time.Second
)

// OpenAIConfig configures the chat-completions backed explainer.
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// OpenAIExplainer generates explanations through an OpenAI-compatible chat
// completions API, retrying transient failures with exponential backoff.
type OpenAIExplainer struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
}

// NewOpenAIExplainer creates a client. The API key is required.
func NewOpenAIExplainer(cfg OpenAIConfig) (*OpenAIExplainer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("explainer api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	return &OpenAIExplainer{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: defaultHTTPTimeout},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate builds the domain-expert prompt, calls the chat API and parses the
// structured sections out of the response.
func (e *OpenAIExplainer) Generate(ctx context.Context, errInfo ErrorInfo, claimInfo ClaimInfo) (ExplanationResult, error) {
	cptCtx := LookupCPT(claimInfo.CPTCode)
	icdCtx := LookupICD(claimInfo.DiagnosisCode)

	text, err := e.complete(ctx, systemPrompt, buildPrompt(errInfo, claimInfo, cptCtx, icdCtx))
	if err != nil {
		return ExplanationResult{}, err
	}

	sections := parseSections(text)
	riskLevel, indicators := assessRisk(errInfo, claimInfo, cptCtx)

	return ExplanationResult{
		ClaimID:            claimInfo.ClaimID,
		ErrorType:          errInfo.ErrorType,
		Explanation:        sectionOr(sections, "explanation", text),
		MedicalReasoning:   sectionOr(sections, "medical_reasoning", "Medical analysis pending"),
		BusinessImpact:     sectionOr(sections, "business_impact", "Potential payment error"),
		FinancialImpact:    sectionOr(sections, "financial_impact", "Impact assessment required"),
		RegulatoryConcerns: sectionOr(sections, "regulatory_concerns", "Compliance review needed"),
		NextSteps:          sectionOr(sections, "next_steps", "Review and correct"),
		Confidence:         0.92,
		RiskLevel:          riskLevel,
		FraudIndicators:    indicators,
	}, nil
}

// complete performs the chat call with retries on transient failures.
func (e *OpenAIExplainer) complete(ctx context.Context, system, user string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			if delay > retryMaxDelay {
				delay = retryMaxDelay
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		text, retryable, err := e.doRequest(ctx, payload)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", fmt.Errorf("chat completion failed after %d attempts: %w", maxRetries+1, lastErr)
}

func (e *OpenAIExplainer) doRequest(ctx context.Context, payload []byte) (text string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", true, err
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("chat api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("chat api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false, fmt.Errorf("decode chat response: %w", err)
	}
	if parsed.Error != nil {
		return "", false, fmt.Errorf("chat api error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("chat response contains no choices")
	}
	return parsed.Choices[0].Message.Content, false, nil
}

const systemPrompt = `You are a senior healthcare claims analyst and certified medical coder with 15+ years of experience in pre-payment claim validation. Your expertise includes:

- Advanced knowledge of CPT-4 and ICD-10-CM coding systems
- Healthcare billing regulations and CMS guidelines
- Medical necessity determination and clinical protocols
- Fraud detection and risk assessment methodologies
- Healthcare finance and reimbursement optimization

When analyzing claims errors, provide sophisticated medical reasoning that demonstrates deep healthcare domain knowledge. Focus on clinical accuracy, regulatory compliance, and business impact with specific financial implications.

Your analysis should be suitable for healthcare administrators, medical directors, and compliance officers who need actionable insights for immediate decision-making.`

func buildPrompt(errInfo ErrorInfo, claimInfo ClaimInfo, cptCtx CPTContext, icdCtx ICDContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "HEALTHCARE CLAIM VALIDATION ERROR ANALYSIS\n\n")
	fmt.Fprintf(&b, "ERROR CLASSIFICATION:\n")
	fmt.Fprintf(&b, "- Error Type: %s\n", errInfo.ErrorType)
	fmt.Fprintf(&b, "- Error Description: %s\n", errInfo.Description)
	fmt.Fprintf(&b, "- Severity Level: %s\n\n", errInfo.Severity)

	fmt.Fprintf(&b, "PATIENT DEMOGRAPHICS:\n")
	fmt.Fprintf(&b, "- Age: %d years\n", claimInfo.Age)
	fmt.Fprintf(&b, "- Gender: %s\n\n", claimInfo.Gender)

	fmt.Fprintf(&b, "MEDICAL CODING DETAILS:\n")
	fmt.Fprintf(&b, "- Procedure Code (CPT): %s\n", claimInfo.CPTCode)
	fmt.Fprintf(&b, "  - Description: %s\n", cptCtx.Description)
	fmt.Fprintf(&b, "  - Category: %s\n", cptCtx.Category)
	fmt.Fprintf(&b, "  - Gender Requirement: %s\n", cptCtx.GenderRequirement)
	fmt.Fprintf(&b, "  - Typical Age Range: %s\n", cptCtx.TypicalAgeRange)
	fmt.Fprintf(&b, "  - Complexity Level: %s\n", cptCtx.Complexity)
	fmt.Fprintf(&b, "  - Medical Necessity: %s\n\n", cptCtx.MedicalNecessity)
	fmt.Fprintf(&b, "- Diagnosis Code (ICD-10): %s\n", claimInfo.DiagnosisCode)
	fmt.Fprintf(&b, "  - Description: %s\n", icdCtx.Description)
	fmt.Fprintf(&b, "  - Category: %s\n", icdCtx.Category)
	fmt.Fprintf(&b, "  - Body System: %s\n", icdCtx.BodySystem)
	fmt.Fprintf(&b, "  - Severity: %s\n\n", icdCtx.Severity)

	fmt.Fprintf(&b, "FINANCIAL DETAILS:\n")
	fmt.Fprintf(&b, "- Claim Amount: $%.2f\n", claimInfo.ChargeAmount)
	fmt.Fprintf(&b, "- Provider Impact: Payment delay/denial risk\n\n")

	fmt.Fprintf(&b, "ANALYSIS REQUIRED:\n")
	fmt.Fprintf(&b, "Provide comprehensive analysis in the following format:\n\n")
	fmt.Fprintf(&b, "MEDICAL_REASONING: [Clinical explanation of why this combination is problematic from medical/coding perspective, including specific medical knowledge]\n\n")
	fmt.Fprintf(&b, "BUSINESS_IMPACT: [Immediate operational consequences for the healthcare organization, including workflow disruption]\n\n")
	fmt.Fprintf(&b, "FINANCIAL_IMPACT: [Specific dollar impact, including potential overpayment, recovery costs, and audit penalties]\n\n")
	fmt.Fprintf(&b, "REGULATORY_CONCERNS: [CMS compliance issues, coding guideline violations, and audit risk factors]\n\n")
	fmt.Fprintf(&b, "NEXT_STEPS: [Prioritized action items with specific timelines and responsible parties]\n")

	return b.String()
}

var sectionMarkers = map[string]string{
	"EXPLANATION:":         "explanation",
	"MEDICAL_REASONING:":   "medical_reasoning",
	"BUSINESS_IMPACT:":     "business_impact",
	"FINANCIAL_IMPACT:":    "financial_impact",
	"REGULATORY_CONCERNS:": "regulatory_concerns",
	"NEXT_STEPS:":          "next_steps",
}

// parseSections splits the model output on the section markers the prompt
// asked for. Text before any marker lands in the explanation section.
func parseSections(text string) map[string]string {
	sections := make(map[string]string)
	current := "explanation"

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		marked := false
		for marker, key := range sectionMarkers {
			if strings.HasPrefix(line, marker) {
				current = key
				if content := strings.TrimSpace(strings.TrimPrefix(line, marker)); content != "" {
					sections[current] = content
				}
				marked = true
				break
			}
		}
		if marked || line == "" {
			continue
		}

		if sections[current] != "" {
			sections[current] += " " + line
		} else {
			sections[current] = line
		}
	}
	return sections
}

func sectionOr(sections map[string]string, key, fallback string) string {
	if s := sections[key]; s != "" {
		return s
	}
	return fallback
}

// assessRisk derives a risk level and fraud indicators from the error type
// and claim attributes. High-value claims get extra scrutiny regardless of
// error type.
func assessRisk(errInfo ErrorInfo, claimInfo ClaimInfo, cptCtx CPTContext) (string, []string) {
	var indicators []string
	riskLevel := "LOW"

	switch {
	case strings.Contains(errInfo.ErrorType, "Gender-Procedure Mismatch"):
		riskLevel = "HIGH"
		indicators = append(indicators,
			"Biologically impossible procedure-gender combination",
			"Potential identity theft or data entry manipulation",
			"Requires immediate manual verification",
		)
	case strings.Contains(errInfo.ErrorType, "Age-Procedure Mismatch"):
		if claimInfo.Age < 18 && cptCtx.GenderRequirement == "Female only" {
			riskLevel = "HIGH"
			indicators = append(indicators, "Pediatric patient with adult reproductive procedure")
		} else {
			riskLevel = "MEDIUM"
			indicators = append(indicators, "Age-inappropriate procedure selection")
		}
	case strings.Contains(errInfo.ErrorType, "Anatomical Logic Error"):
		riskLevel = "HIGH"
		indicators = append(indicators,
			"Anatomically inconsistent procedure-diagnosis pairing",
			"Potential upcoding or unbundling scheme",
			"Clinical documentation likely insufficient",
		)
	}

	if claimInfo.ChargeAmount > 2000 {
		indicators = append(indicators, fmt.Sprintf("High-value claim ($%.0f) requires enhanced review", claimInfo.ChargeAmount))
		if riskLevel == "LOW" {
			riskLevel = "MEDIUM"
		}
	}

	return riskLevel, indicators
}
