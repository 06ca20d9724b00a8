package domain

// VisualizationState describes an in-flight or finished video+narration
// pairing for a piece of text.
type VisualizationState struct {
	Text        string `json:"text"`
	VideoURL    string `json:"video_url,omitempty"`
	AudioData   string `json:"audio_data,omitempty"`
	AudioURL    string `json:"audio_url,omitempty"`
	IsLoading   bool   `json:"is_loading"`
	LoadingStep string `json:"loading_step,omitempty"`
}
