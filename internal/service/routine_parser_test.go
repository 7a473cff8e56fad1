package service

import (
	"testing"

	"glow-llm/internal/domain"
)

const sampleRoutineJSON = `{
	"morning": [
		{"step": "Cleanse", "product_id": "p1", "product_name": "Clear Start Gel Cleanser", "instructions": "Massage onto damp skin.", "frequency": "daily"},
		{"step": "Moisturize", "product_id": "p5", "product_name": "Velvet Cloud Moisturizer", "instructions": "Apply a pea-sized amount."}
	],
	"evening": [
		{"step": "Treat", "product_id": "p4", "product_name": "Night Repair Retinol Treatment", "instructions": "Thin layer on blemishes."}
	],
	"weekly": [
		{"step": "Exfoliate", "product_id": "p7", "product_name": "Glow AHA Exfoliant", "instructions": "Once a week.", "frequency": "weekly"}
	],
	"summary": "A simple routine for oily skin.",
	"tips": ["Patch test new actives.", "Always finish mornings with SPF."]
}`

func TestParseRoutineDocument(t *testing.T) {
	routine, err := ParseRoutineDocument(sampleRoutineJSON)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(routine.Morning) != 2 || len(routine.Evening) != 1 || len(routine.Weekly) != 1 {
		t.Fatalf("step counts: morning=%d evening=%d weekly=%d",
			len(routine.Morning), len(routine.Evening), len(routine.Weekly))
	}
	if routine.Summary != "A simple routine for oily skin." {
		t.Fatalf("summary: %q", routine.Summary)
	}
	if len(routine.Tips) != 2 {
		t.Fatalf("tips: %v", routine.Tips)
	}
	if routine.Morning[1].Frequency != domain.FrequencyDaily {
		t.Fatalf("missing frequency should default to daily, got %q", routine.Morning[1].Frequency)
	}
	if routine.Weekly[0].Frequency != domain.FrequencyWeekly {
		t.Fatalf("weekly frequency: %q", routine.Weekly[0].Frequency)
	}
}

func TestParseRoutineDocumentRenumbersSteps(t *testing.T) {
	routine, err := ParseRoutineDocument(sampleRoutineJSON)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	for _, seq := range [][]domain.RoutineStep{routine.Morning, routine.Evening, routine.Weekly} {
		for i, step := range seq {
			if step.Order != i+1 {
				t.Fatalf("step %q has order %d, want %d", step.Name, step.Order, i+1)
			}
		}
	}
}

func TestParseRoutineDocumentWithFences(t *testing.T) {
	fenced := "Here is your routine:\n```json\n" + sampleRoutineJSON + "\n```"
	routine, err := ParseRoutineDocument(fenced)
	if err != nil {
		t.Fatalf("parse fenced: %v", err)
	}
	if len(routine.Morning) != 2 {
		t.Fatalf("fenced parse lost steps: %d", len(routine.Morning))
	}
}

func TestParseRoutineDocumentSurroundingProse(t *testing.T) {
	wrapped := "Sure! Based on your profile I suggest:\n" + sampleRoutineJSON + "\nLet me know if you need changes."
	if _, err := ParseRoutineDocument(wrapped); err != nil {
		t.Fatalf("parse with surrounding prose: %v", err)
	}
}

func TestParseRoutineDocumentRejectsGarbage(t *testing.T) {
	cases := map[string]string{
		"empty":       "",
		"prose only":  "I could not build a routine for this profile.",
		"no steps":    `{"morning": [], "evening": [], "weekly": [], "summary": "x", "tips": []}`,
		"broken json": `{"morning": [{"step": "Cleanse"`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseRoutineDocument(raw); err == nil {
				t.Fatalf("expected error for %s input", name)
			}
		})
	}
}

func TestCleanModelJSONResponse(t *testing.T) {
	in := "```json\n{\"a\": 1}\n```"
	if got := CleanModelJSONResponse(in); got != `{"a": 1}` {
		t.Fatalf("clean: %q", got)
	}
	if got := CleanModelJSONResponse("  {\"a\": 1}  "); got != `{"a": 1}` {
		t.Fatalf("trim: %q", got)
	}
}
