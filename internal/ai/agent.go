package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"repair-desk/internal/core"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
)

// IntakeAssistant turns a free-text drop-off note into an intake proposal.
// Nothing is persisted: the operator reviews the proposal and submits it as a
// regular intake.
type IntakeAssistant interface {
	InterpretIntake(ctx context.Context, note string, today time.Time) (*IntakeResponse, error)
}

// IntakeProposal is a pre-filled intake form.
type IntakeProposal struct {
	Customer   core.CustomerInput `json:"customer"`
	Device     core.DeviceInput   `json:"device"`
	Inward     core.InwardInput   `json:"inward"`
	Confidence float64            `json:"confidence" jsonschema:"minimum=0,maximum=1"`
	Reasoning  string             `json:"reasoning"`
}

// IntakeInput converts the proposal into form input.
func (p *IntakeProposal) IntakeInput() core.IntakeInput {
	in := core.IntakeInput{Customer: p.Customer, Device: p.Device, Inward: p.Inward}
	in.Normalize()
	return in
}

type Clarification struct {
	Message string `json:"message"`
	// Missing lists "section.field" keys the note did not supply.
	Missing []string `json:"missing,omitempty"`
}

// IntakeResponse holds either a proposal or a clarification request.
type IntakeResponse struct {
	IsClarificationRequest bool            `json:"is_clarification_request"`
	Clarification          *Clarification  `json:"clarification,omitempty"`
	Proposal               *IntakeProposal `json:"proposal,omitempty"`
}

// intakeReply is the structured-output shape. Strict mode requires every
// field, so the proposal is always present and ignored when a question is asked.
type intakeReply struct {
	NeedsClarification bool           `json:"needs_clarification"`
	Question           string         `json:"question" jsonschema:"description=Question for the operator or empty string"`
	Proposal           IntakeProposal `json:"proposal"`
}

type Agent struct {
	client *openai.Client
}

func NewAgent(apiKey string) *Agent {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Agent{client: &client}
}

func (a *Agent) InterpretIntake(ctx context.Context, note string, today time.Time) (*IntakeResponse, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, errors.New("intake note is empty")
	}

	schemaMap, err := intakeSchema()
	if err != nil {
		return nil, err
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(shared.ChatModelGPT4o),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(intakePrompt(note, today)),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "service_intake_proposal",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("A pre-filled device repair intake form or a clarification question"),
				},
			},
		},
	}

	resp, err := a.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", err)
	}

	content := resp.OutputText()
	if content == "" {
		return nil, fmt.Errorf("empty response content")
	}
	return parseIntakeReply(content)
}

func intakePrompt(note string, today time.Time) string {
	return fmt.Sprintf(`You are the front-desk assistant of a computer repair shop.
Read the drop-off note and fill in the intake form.
Rules:
1. device_type is one of laptop, desktop, printer.
2. estimated_cost is a decimal string with two places (e.g. "1500.00"); use "0.00" if no estimate was given.
3. estimated_delivery_date is YYYY-MM-DD. Today is %s. If no date is mentioned, use three days from today.
4. Use empty strings for unknown optional fields (email, serial_number, accessories_received).
5. If the customer name, phone, device brand, device model or problem is missing, set needs_clarification and ask one short question.
6. Provide a confidence score (0.0-1.0) and explain your reasoning.

Note: %s`, today.Format(core.DateLayout), note)
}

func parseIntakeReply(content string) (*IntakeResponse, error) {
	var reply intakeReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}

	if reply.NeedsClarification {
		msg := strings.TrimSpace(reply.Question)
		if msg == "" {
			msg = "Please provide more details about the customer and device."
		}
		return &IntakeResponse{IsClarificationRequest: true, Clarification: &Clarification{Message: msg}}, nil
	}

	proposal := reply.Proposal
	in := proposal.IntakeInput()
	if err := in.Validate(); err != nil {
		var verr *core.ValidationError
		if !errors.As(err, &verr) {
			return nil, fmt.Errorf("proposal validation failed: %w", err)
		}
		missing := make([]string, 0, len(verr.Fields))
		for key := range verr.ByField() {
			missing = append(missing, key)
		}
		sort.Strings(missing)
		return &IntakeResponse{
			IsClarificationRequest: true,
			Clarification:          &Clarification{Message: verr.Summary(), Missing: missing},
			Proposal:               &proposal,
		}, nil
	}

	proposal.Customer, proposal.Device, proposal.Inward = in.Customer, in.Device, in.Inward
	return &IntakeResponse{Proposal: &proposal}, nil
}

func intakeSchema() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schemaJSON, err := json.Marshal(reflector.Reflect(&intakeReply{}))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}
	return schemaMap, nil
}
