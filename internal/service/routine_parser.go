package service

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"glow-llm/internal/domain"
)

// routineDocument es el esquema que debe cumplir la respuesta terminal del modelo.
type routineDocument struct {
	Morning []routineStepDoc `json:"morning"`
	Evening []routineStepDoc `json:"evening"`
	Weekly  []routineStepDoc `json:"weekly"`
	Summary string           `json:"summary"`
	Tips    []string         `json:"tips"`
}

type routineStepDoc struct {
	Step         string `json:"step"`
	Name         string `json:"name"`
	ProductID    string `json:"product_id"`
	ProductName  string `json:"product_name"`
	Instructions string `json:"instructions"`
	Frequency    string `json:"frequency"`
}

// ParseRoutineDocument intenta extraer y parsear el documento estructurado de
// rutina desde la salida cruda del modelo. Tolera fences de markdown y texto
// alrededor del JSON.
func ParseRoutineDocument(raw string) (domain.Routine, error) {
	cleaned := CleanModelJSONResponse(raw)

	jsonObj := extractFirstJSONObject(cleaned)
	if jsonObj == "" {
		jsonObj = extractFirstJSONObject(raw)
	}
	if jsonObj == "" {
		return domain.Routine{}, fmt.Errorf("no JSON object in model output")
	}

	var doc routineDocument
	if err := json.Unmarshal([]byte(jsonObj), &doc); err != nil {
		return domain.Routine{}, fmt.Errorf("unmarshal routine document: %w", err)
	}

	routine := domain.Routine{
		Morning: toSteps(doc.Morning, domain.FrequencyDaily),
		Evening: toSteps(doc.Evening, domain.FrequencyDaily),
		Weekly:  toSteps(doc.Weekly, domain.FrequencyWeekly),
		Summary: strings.TrimSpace(doc.Summary),
		Tips:    doc.Tips,
	}
	if len(routine.Morning)+len(routine.Evening)+len(routine.Weekly) == 0 {
		return domain.Routine{}, fmt.Errorf("routine document has no steps")
	}
	routine.Renumber()
	return routine, nil
}

func toSteps(docs []routineStepDoc, defaultFrequency string) []domain.RoutineStep {
	var steps []domain.RoutineStep
	for _, d := range docs {
		name := strings.TrimSpace(d.Step)
		if name == "" {
			name = strings.TrimSpace(d.Name)
		}
		if name == "" && d.ProductName == "" && d.ProductID == "" {
			continue
		}
		frequency := strings.TrimSpace(strings.ToLower(d.Frequency))
		if frequency == "" {
			frequency = defaultFrequency
		}
		steps = append(steps, domain.RoutineStep{
			Name:         name,
			ProductID:    strings.TrimSpace(d.ProductID),
			ProductName:  strings.TrimSpace(d.ProductName),
			Instructions: strings.TrimSpace(d.Instructions),
			Frequency:    frequency,
		})
	}
	return steps
}

// extractFirstJSONObject devuelve el primer objeto JSON balanceado dentro del
// texto, respetando llaves dentro de strings y escapes. Cadena vacia si no hay
// objeto completo.
func extractFirstJSONObject(input string) string {
	start := strings.IndexByte(input, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(input); i++ {
		c := input[i]
		switch {
		case escaped:
			escaped = false
		case inString:
			if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}

// CleanModelJSONResponse quita fences ```json ... ``` y BOM, dejando el contenido usable.
func CleanModelJSONResponse(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	s = strings.TrimPrefix(s, "\uFEFF")

	reStart := regexp.MustCompile("(?is)^\\s*```(?:json)?\\s*")
	reEnd := regexp.MustCompile("(?is)\\s*```\\s*$")
	s = reStart.ReplaceAllString(s, "")
	s = reEnd.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
