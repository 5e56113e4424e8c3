package model

// Service is one entry of the treatment catalog. Aliases are alternative
// spellings used only for text matching.
type Service struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Duration    int      `json:"duration"`
	PriceFrom   int      `json:"price_from"`
	Description string   `json:"description"`
	Aliases     []string `json:"aliases,omitempty"`
}
