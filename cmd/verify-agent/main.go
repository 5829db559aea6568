// verify-agent sends one drop-off note to the OpenAI intake assistant and
// prints the reply. Nothing is written to the database.
//
// Usage: go run ./cmd/verify-agent ["<drop-off note>"]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"repair-desk/internal/ai"
	"repair-desk/internal/config"
)

const sampleNote = "Priya Sharma, 98450 12345, 14 Residency Road Bangalore. " +
	"HP Pavilion laptop, overheating and shuts down after ten minutes. Charger included. " +
	"Quoted around 1200, promised for Friday. Received by Kumar, lid scratched."

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.OpenAIKey == "" {
		log.Fatal("OPENAI_API_KEY not set")
	}

	note := sampleNote
	if len(os.Args) > 1 {
		note = os.Args[1]
	}

	agent := ai.NewAgent(cfg.OpenAIKey)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	fmt.Printf("INTERPRETING NOTE: %s\n", note)
	resp, err := agent.InterpretIntake(ctx, note, time.Now())
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	if resp.IsClarificationRequest {
		fmt.Printf("\n--- CLARIFICATION ---\n%s\n", resp.Clarification.Message)
		for _, f := range resp.Clarification.Missing {
			fmt.Printf("- missing %s\n", f)
		}
		return
	}

	fmt.Printf("\n--- PROPOSAL ---\n")
	fmt.Printf("Confidence: %.2f\n", resp.Proposal.Confidence)
	fmt.Printf("Reasoning: %s\n\n", resp.Proposal.Reasoning)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp.Proposal.IntakeInput()); err != nil {
		log.Fatalf("encode: %v", err)
	}
}
