package model

// CSVTask is the queue payload for one uploaded CSV line.
type CSVTask struct {
	JobID       string  `json:"jobId"`
	URL         string  `json:"url"`
	RemoteAddr  string  `json:"remoteAddr"`
	QRRequested bool    `json:"qrRequested,omitempty"`
	Format      *Format `json:"format,omitempty"`
}

// CSVJobRow is the processed result of one CSV line. Rows accumulate per job
// in whatever order workers finish them; the job is complete when the row
// count reaches the total recorded at submission.
type CSVJobRow struct {
	JobID       string `json:"jobId"`
	Hash        string `json:"hash"`    // empty if the URL was invalid
	OriginalURL string `json:"originalUrl"`
	Comment     string `json:"comment"` // error text for invalid URLs
	QRLink      string `json:"qrLink"`  // empty unless a QR was requested
}
