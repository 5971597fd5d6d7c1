package models

// Prediction is the response to a PredictRequest.
type Prediction struct {
	Request     PredictRequest `json:"request"`
	Predictions []float64      `json:"predictions"`
	Increase    float64        `json:"increase"`
	ShouldBuy   bool           `json:"should_buy"`
	Score       float64        `json:"score"`
}
