package models

// PageMapping maps a dashboard page (category/platform/page name) to the UTM
// source and mediums its traffic is attributed under. Reference data edited
// through the admin UI; no pipeline logic depends on it.
type PageMapping struct {
	ID         int      `json:"id"`
	Category   string   `json:"category"`
	Platform   string   `json:"platform"`
	PageName   string   `json:"pageName"`
	UTMSource  string   `json:"utmSource"`
	UTMMediums []string `json:"utmMediums"`
}
