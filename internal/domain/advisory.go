package domain

type SoilAnalysisResult struct {
	RecommendedCrops []string `json:"recommendedCrops"`
	PreventionTips   []string `json:"preventionTips"`
}

type CropAdvisoryParams struct {
	Region   string  `json:"region"`
	PHLevel  float64 `json:"pHLevel"`
	SoilType string  `json:"soilType"`
	Moisture float64 `json:"moisture"`
}

type CropRecommendation struct {
	Crops                []string `json:"crops"`
	SustainablePractices []string `json:"sustainablePractices"`
	RiskReductionTips    []string `json:"riskReductionTips"`
}
