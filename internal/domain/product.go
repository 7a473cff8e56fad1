package domain

// Categorias de catalogo usadas por el motor de rutinas.
const (
	CategoryCleanser    = "cleanser"
	CategoryToner       = "toner"
	CategoryEssence     = "essence"
	CategorySerum       = "serum"
	CategoryTreatment   = "treatment"
	CategoryMoisturizer = "moisturizer"
	CategorySunscreen   = "sunscreen"
	CategoryExfoliant   = "exfoliant"
	CategoryMask        = "mask"
	CategoryShampoo     = "shampoo"
	CategoryConditioner = "conditioner"
)

// Product es la proyeccion de solo lectura de un registro del catalogo externo.
type Product struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Brand        string   `json:"brand"`
	Category     string   `json:"category"`
	Price        float64  `json:"price"`
	SkinTypes    []string `json:"skin_types,omitempty"`
	Concerns     []string `json:"concerns,omitempty"`
	HairTypes    []string `json:"hair_types,omitempty"`
	Description  string   `json:"description,omitempty"`
	Rating       float64  `json:"rating"`
	ImageURL     string   `json:"image_url,omitempty"`
	PurchaseLink string   `json:"purchase_link,omitempty"`
	Retailer     string   `json:"retailer,omitempty"`
}

// ProductMatch es un resultado de busqueda: producto mas score de similitud en [0,1].
type ProductMatch struct {
	Product
	Similarity float64 `json:"similarity"`
	Reason     string  `json:"reason,omitempty"`
}

// ClampSimilarity acota un score al rango valido [0,1].
func ClampSimilarity(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
