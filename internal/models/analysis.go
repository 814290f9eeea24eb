package models

// JobLoadingMethod describes how a career page loads its job list.
type JobLoadingMethod string

const (
	LoadingStatic JobLoadingMethod = "static"
	LoadingSPA    JobLoadingMethod = "spa"
	LoadingAjax   JobLoadingMethod = "ajax"
	LoadingAPI    JobLoadingMethod = "api"
)

// URLAnalysisResult is the one-shot result of a deep career-page inspection.
// It is not persisted; consumers hand it off into the import-queue flow by
// converting its link lists into ExtractedJobLink entries.
type URLAnalysisResult struct {
	URL                string           `json:"url"`
	Confidence         float64          `json:"confidence"`
	SiteType           string           `json:"site_type"`
	Platform           string           `json:"platform"`
	JobLoadingMethod   JobLoadingMethod `json:"job_loading_method"`
	TotalJobsEstimate  int              `json:"total_jobs_estimate,omitempty"`
	JobListSelector    string           `json:"job_list_selector,omitempty"`
	JobLinkSelector    string           `json:"job_link_selector,omitempty"`
	JobLinkPattern     string           `json:"job_link_pattern,omitempty"`
	APIEndpointPattern string           `json:"api_endpoint_pattern,omitempty"`
	PaginationType     string           `json:"pagination_type,omitempty"`
	PaginationSelector string           `json:"pagination_selector,omitempty"`
	SearchFormSelector string           `json:"search_form_selector,omitempty"`
	ExtractionMethods  []string         `json:"extraction_methods,omitempty"`
	ExtractionSteps    []string         `json:"extraction_steps,omitempty"`
	Challenges         []string         `json:"challenges,omitempty"`
	AllExtractedLinks  []string         `json:"all_extracted_links,omitempty"`
	SampleJobLinks     []string         `json:"sample_job_links,omitempty"`
	Notes              string           `json:"notes,omitempty"`
}

// PreferredLinks returns the usable direct link list. AllExtractedLinks and
// SampleJobLinks are alternatives, not complements: the full list wins and
// the sample list is only a reduced-confidence fallback.
func (a *URLAnalysisResult) PreferredLinks() []string {
	if len(a.AllExtractedLinks) > 0 {
		return a.AllExtractedLinks
	}
	return a.SampleJobLinks
}
