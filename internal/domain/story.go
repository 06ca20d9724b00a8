package domain

// Story is a fixed devotional content unit: scripture, theme and the
// system context handed to the generative model.
type Story struct {
	ID              string `json:"id" yaml:"id"`
	ChapterRef      string `json:"chapter_ref" yaml:"chapter_ref"`
	TitlePrefix     string `json:"title_prefix" yaml:"title_prefix"`
	TitleHighlight  string `json:"title_highlight" yaml:"title_highlight"`
	Theme           string `json:"theme" yaml:"theme"`
	Reference       string `json:"reference" yaml:"reference"`
	Text            string `json:"text" yaml:"text"`
	BackgroundImage string `json:"background_image" yaml:"background_image"`
	AIContext       string `json:"ai_context" yaml:"ai_context"`
}

// Title joins the two title parts as they are displayed.
func (s Story) Title() string {
	return s.TitlePrefix + " " + s.TitleHighlight
}

// QuizContext is the text the quiz generator works from.
func (s Story) QuizContext() string {
	return s.Text + " " + s.AIContext
}
