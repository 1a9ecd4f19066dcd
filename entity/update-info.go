package entity

// UpdateInfo is the answer to a client version check.
type UpdateInfo struct {
	UpdateAvailable bool   `json:"updateAvailable"`
	LatestVersion   string `json:"latestVersion"`
	DownloadURL     string `json:"downloadURL,omitempty"`
	IsBeta          bool   `json:"isBeta"`
	BetaWarning     string `json:"betaWarning,omitempty"`
}

// FileMeta describes a downloadable release artifact.
type FileMeta struct {
	Name          string
	ContentType   string
	ContentLength int64
}
