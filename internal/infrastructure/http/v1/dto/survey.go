package dto

// SurveyAnswersRequest carries a user's answers. A missing or null array is
// rejected by the survey service; any other non-array fails binding.
type SurveyAnswersRequest struct {
	Answers []any `json:"answers"`
}
