package syncruns

// triggerRunRequest represents the request to start one sync pass
type triggerRunRequest struct {
	Category string `json:"category"` // static or api
}

// triggerRunResponse is the run's summary; root-cause detail lives in the
// audit log
type triggerRunResponse struct {
	Category string `json:"category"`
	Synced   int    `json:"synced"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
}
