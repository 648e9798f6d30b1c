package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"medscribe/internal/domain"
)

// Config controls the clinical reasoning endpoint.
type Config struct {
	BearerToken     string
	APIBaseURL      string
	AnalysisModel   string
	ExtractionModel string
	HTTPClient      *http.Client
}

// Client implements ports.MedicalExtractor against an OpenAI-compatible
// chat completion API. Analyze and Extract are independent calls; the
// session machine sequences them.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.openai.com/v1"
	}
	if cfg.AnalysisModel == "" {
		cfg.AnalysisModel = "gpt-4o"
	}
	if cfg.ExtractionModel == "" {
		cfg.ExtractionModel = "gpt-4o"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient}
}

func (c *Client) Analyze(ctx context.Context, transcript string, pctx *domain.PatientContext) (domain.AnalysisResult, error) {
	if strings.TrimSpace(transcript) == "" {
		return domain.AnalysisResult{}, domain.ExtractionError(domain.ErrCodeInvalidInput, "cannot analyze an empty transcript", nil)
	}

	payload, err := c.complete(ctx, c.cfg.AnalysisModel, analysisSystemPrompt, analysisUserPrompt(transcript, pctx))
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	var reply analysisReply
	if err := decodeReplyJSON(payload, &reply); err != nil {
		return domain.AnalysisResult{}, err
	}
	return mapAnalysis(reply), nil
}

func (c *Client) Extract(ctx context.Context, transcript string, pctx *domain.PatientContext, prior *domain.AnalysisResult) (domain.ExtractedMedicalData, error) {
	if strings.TrimSpace(transcript) == "" {
		return domain.ExtractedMedicalData{}, domain.ExtractionError(domain.ErrCodeInvalidInput, "cannot extract from an empty transcript", nil)
	}

	payload, err := c.complete(ctx, c.cfg.ExtractionModel, extractionSystemPrompt, extractionUserPrompt(transcript, pctx, prior))
	if err != nil {
		return domain.ExtractedMedicalData{}, err
	}

	var extracted domain.ExtractedMedicalData
	if err := decodeReplyJSON(payload, &extracted); err != nil {
		return domain.ExtractedMedicalData{}, err
	}
	normalizeExtracted(&extracted)
	extracted.ExtractionTimestamp = time.Now()
	return extracted, nil
}

// normalizeExtracted fills in slice fields the upstream reply omitted.
// Groups absent from the reply stay as empty structs.
func normalizeExtracted(data *domain.ExtractedMedicalData) {
	data.MedicalHistory.PastMedicalHistory = nonNil(data.MedicalHistory.PastMedicalHistory)
	data.MedicalHistory.PastSurgicalHistory = nonNil(data.MedicalHistory.PastSurgicalHistory)
	data.MedicalHistory.ChronicConditions = nonNil(data.MedicalHistory.ChronicConditions)
	data.MedicalHistory.PreviousHospitalizations = nonNil(data.MedicalHistory.PreviousHospitalizations)

	if data.ClinicalFindings.Symptoms == nil {
		data.ClinicalFindings.Symptoms = []domain.Symptom{}
	}
	data.ClinicalFindings.PhysicalExamFinding = nonNil(data.ClinicalFindings.PhysicalExamFinding)

	if data.Medications.CurrentMedications == nil {
		data.Medications.CurrentMedications = []domain.ExtractedMedication{}
	}
	if data.Medications.OverTheCounter == nil {
		data.Medications.OverTheCounter = []domain.ExtractedMedication{}
	}
	data.Medications.RecentChanges = nonNil(data.Medications.RecentChanges)

	if data.Allergies.DrugAllergies == nil {
		data.Allergies.DrugAllergies = []domain.ExtractedAllergy{}
	}
	if data.Allergies.FoodAllergies == nil {
		data.Allergies.FoodAllergies = []domain.ExtractedAllergy{}
	}
	if data.Allergies.EnvironmentalAllergies == nil {
		data.Allergies.EnvironmentalAllergies = []domain.ExtractedAllergy{}
	}

	data.FamilyHistory.Conditions = nonNil(data.FamilyHistory.Conditions)
	data.FamilyHistory.HereditaryConditions = nonNil(data.FamilyHistory.HereditaryConditions)

	if data.TreatmentPlan.Medications == nil {
		data.TreatmentPlan.Medications = []domain.ExtractedMedication{}
	}
	data.TreatmentPlan.Procedures = nonNil(data.TreatmentPlan.Procedures)
	data.TreatmentPlan.Referrals = nonNil(data.TreatmentPlan.Referrals)
	data.TreatmentPlan.LifestyleModifications = nonNil(data.TreatmentPlan.LifestyleModifications)

	data.FollowUp.ReturnPrecautions = nonNil(data.FollowUp.ReturnPrecautions)
	data.FollowUp.HomeInstructions = nonNil(data.FollowUp.HomeInstructions)
}

// complete runs one chat completion call and returns the assistant
// message content.
func (c *Client) complete(ctx context.Context, model string, system string, user string) (string, error) {
	if strings.TrimSpace(c.cfg.BearerToken) == "" {
		return "", errors.New("reasoning token is not configured")
	}

	request := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.1,
	}
	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.APIBaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", domain.ExtractionError(domain.ErrCodeUpstreamFailure, "reasoning request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", domain.ExtractionError(domain.ErrCodeUpstreamFailure, "failed to read reasoning response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", domain.ExtractionError(
			domain.ErrCodeUpstreamFailure,
			fmt.Sprintf("reasoning endpoint returned %d", resp.StatusCode),
			nil,
		)
	}

	var reply chatReply
	if err := json.Unmarshal(payload, &reply); err != nil {
		return "", domain.ExtractionError(domain.ErrCodeMalformedResponse, "reasoning response is not valid JSON", err)
	}
	if len(reply.Choices) == 0 {
		return "", domain.ExtractionError(domain.ErrCodeMalformedResponse, "reasoning response has no choices", nil)
	}
	return reply.Choices[0].Message.Content, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatReply struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// decodeReplyJSON extracts the JSON object embedded in an assistant
// message (models often wrap it in prose or markdown fences) and
// unmarshals it. A message with no parseable object is a hard failure;
// fabricating clinical output from a broken reply is never acceptable.
func decodeReplyJSON(content string, out any) error {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return domain.ExtractionError(domain.ErrCodeMalformedResponse, "reasoning reply contains no JSON object", nil)
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), out); err != nil {
		return domain.ExtractionError(domain.ErrCodeMalformedResponse, "reasoning reply JSON does not match the expected shape", err)
	}
	return nil
}

// analysisReply mirrors the reply contract for the analysis pass.
// Every top-level key is optional; missing keys default to empty.
type analysisReply struct {
	Symptoms []struct {
		Name              string   `json:"name"`
		Severity          string   `json:"severity"`
		Confidence        float64  `json:"confidence"`
		Duration          string   `json:"duration"`
		Location          string   `json:"location"`
		Quality           string   `json:"quality"`
		AssociatedFactors []string `json:"associated_factors"`
		SourceText        string   `json:"source_text"`
	} `json:"symptoms"`
	PossibleDiagnoses []struct {
		Condition             string   `json:"condition"`
		ICD10Code             string   `json:"icd10_code"`
		Probability           float64  `json:"probability"`
		Severity              string   `json:"severity"`
		SupportingEvidence    []string `json:"supporting_evidence"`
		AgainstEvidence       []string `json:"against_evidence"`
		AdditionalTestsNeeded []string `json:"additional_tests_needed"`
		Reasoning             string   `json:"reasoning"`
		Urgency               string   `json:"urgency"`
	} `json:"possible_diagnoses"`
	TreatmentSuggestions []struct {
		Category          string   `json:"category"`
		Recommendation    string   `json:"recommendation"`
		Priority          string   `json:"priority"`
		Timeframe         string   `json:"timeframe"`
		Contraindications []string `json:"contraindications"`
		Alternatives      []string `json:"alternatives"`
		ExpectedOutcome   string   `json:"expected_outcome"`
	} `json:"treatment_suggestions"`
	FlaggedConcerns []struct {
		Type                    string `json:"type"`
		Severity                string `json:"severity"`
		Message                 string `json:"message"`
		Recommendation          string `json:"recommendation"`
		RequiresImmediateAction bool   `json:"requires_immediate_action"`
	} `json:"flagged_concerns"`
	FollowUpRecommendations []string `json:"follow_up_recommendations"`
	ConfidenceScore         float64  `json:"confidence_score"`
	Reasoning               string   `json:"reasoning"`
}

func mapAnalysis(reply analysisReply) domain.AnalysisResult {
	result := domain.AnalysisResult{
		ID:              fmt.Sprintf("analysis-%s", uuid.NewString()),
		Symptoms:        make([]domain.Symptom, 0, len(reply.Symptoms)),
		Diagnoses:       make([]domain.Diagnosis, 0, len(reply.PossibleDiagnoses)),
		Treatments:      make([]domain.Treatment, 0, len(reply.TreatmentSuggestions)),
		Concerns:        make([]domain.ConcernFlag, 0, len(reply.FlaggedConcerns)),
		NextSteps:       make([]string, 0, len(reply.FollowUpRecommendations)),
		ConfidenceScore: reply.ConfidenceScore,
		Reasoning:       strings.TrimSpace(reply.Reasoning),
		Timestamp:       time.Now(),
	}

	for i, s := range reply.Symptoms {
		result.Symptoms = append(result.Symptoms, domain.Symptom{
			ID:                fmt.Sprintf("symptom-%d", i),
			Name:              strings.TrimSpace(s.Name),
			Severity:          strings.TrimSpace(s.Severity),
			Confidence:        s.Confidence,
			Duration:          strings.TrimSpace(s.Duration),
			Location:          strings.TrimSpace(s.Location),
			Quality:           strings.TrimSpace(s.Quality),
			AssociatedFactors: nonNil(s.AssociatedFactors),
			SourceText:        strings.TrimSpace(s.SourceText),
		})
	}
	for i, d := range reply.PossibleDiagnoses {
		result.Diagnoses = append(result.Diagnoses, domain.Diagnosis{
			ID:                    fmt.Sprintf("diagnosis-%d", i),
			Condition:             strings.TrimSpace(d.Condition),
			ICD10Code:             strings.TrimSpace(d.ICD10Code),
			Probability:           d.Probability,
			Severity:              strings.TrimSpace(d.Severity),
			SupportingEvidence:    nonNil(d.SupportingEvidence),
			AgainstEvidence:       nonNil(d.AgainstEvidence),
			AdditionalTestsNeeded: nonNil(d.AdditionalTestsNeeded),
			Reasoning:             strings.TrimSpace(d.Reasoning),
			Urgency:               strings.TrimSpace(d.Urgency),
		})
	}
	for i, t := range reply.TreatmentSuggestions {
		result.Treatments = append(result.Treatments, domain.Treatment{
			ID:                fmt.Sprintf("treatment-%d", i),
			Category:          strings.TrimSpace(t.Category),
			Recommendation:    strings.TrimSpace(t.Recommendation),
			Priority:          strings.TrimSpace(t.Priority),
			Timeframe:         strings.TrimSpace(t.Timeframe),
			Contraindications: nonNil(t.Contraindications),
			Alternatives:      nonNil(t.Alternatives),
			ExpectedOutcome:   strings.TrimSpace(t.ExpectedOutcome),
		})
	}
	for i, c := range reply.FlaggedConcerns {
		result.Concerns = append(result.Concerns, domain.ConcernFlag{
			ID:                      fmt.Sprintf("concern-%d", i),
			Type:                    strings.TrimSpace(c.Type),
			Severity:                strings.TrimSpace(c.Severity),
			Message:                 strings.TrimSpace(c.Message),
			Recommendation:          strings.TrimSpace(c.Recommendation),
			RequiresImmediateAction: c.RequiresImmediateAction,
		})
	}
	for _, step := range reply.FollowUpRecommendations {
		if trimmed := strings.TrimSpace(step); trimmed != "" {
			result.NextSteps = append(result.NextSteps, trimmed)
		}
	}

	return result
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
