package domain

// Frecuencias validas de un paso de rutina.
const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

// RoutineStep es un paso dentro de una secuencia (morning/evening/weekly).
// ProductID y ProductName son la referencia cruda que entrego el modelo;
// Product queda ligado despues de la resolucion contra el catalogo.
type RoutineStep struct {
	Order        int           `json:"order"`
	Name         string        `json:"name"`
	Product      *ProductMatch `json:"product,omitempty"`
	ProductID    string        `json:"product_id,omitempty"`
	ProductName  string        `json:"product_name,omitempty"`
	Instructions string        `json:"instructions"`
	Frequency    string        `json:"frequency"`
}

// Routine agrupa las tres secuencias ordenadas mas resumen y tips.
// Inmutable una vez devuelta por el motor.
type Routine struct {
	Morning []RoutineStep `json:"morning"`
	Evening []RoutineStep `json:"evening"`
	Weekly  []RoutineStep `json:"weekly"`
	Summary string        `json:"summary"`
	Tips    []string      `json:"tips,omitempty"`
}

// AllSteps devuelve los pasos de las tres secuencias en orden morning, evening, weekly.
func (r Routine) AllSteps() []RoutineStep {
	steps := make([]RoutineStep, 0, len(r.Morning)+len(r.Evening)+len(r.Weekly))
	steps = append(steps, r.Morning...)
	steps = append(steps, r.Evening...)
	steps = append(steps, r.Weekly...)
	return steps
}

// Renumber deja los ordinales contiguos desde 1 dentro de cada secuencia.
func (r *Routine) Renumber() {
	for _, seq := range [][]RoutineStep{r.Morning, r.Evening, r.Weekly} {
		for i := range seq {
			seq[i].Order = i + 1
		}
	}
}

// InferenceResult es la salida completa de una corrida de inferencia.
type InferenceResult struct {
	Products         []ProductMatch `json:"products"`
	Routine          Routine        `json:"routine"`
	Summary          string         `json:"summary"`
	PersonalizedTips []string       `json:"personalized_tips"`
}
