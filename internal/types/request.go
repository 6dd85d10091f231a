package types

import "github.com/go-playground/validator/v10"

// RankRequestBody is the HTTP body of a ranking request.
type RankRequestBody struct {
	Query   string   `json:"query" validate:"max=4000"`
	History []string `json:"history,omitempty" validate:"max=50,dive,max=4000"`
	// Weights, when present, replaces oracle weighting. It must be a
	// distribution over exactly the catalog's aspect keys.
	Weights map[string]float64 `json:"weights,omitempty" validate:"omitempty,max=64"`
}

// Validate validates the RankRequestBody using the validator.
func (r *RankRequestBody) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Conversation returns the request history as conversation state.
func (r *RankRequestBody) Conversation() Conversation {
	return Conversation{Turns: r.History}
}
