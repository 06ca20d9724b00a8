package domain

// Visit is the payload posted to the operator's webhook on first load.
type Visit struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Screen    string `json:"screen"`
	Referrer  string `json:"referrer"`
	UserAgent string `json:"userAgent"`
}
