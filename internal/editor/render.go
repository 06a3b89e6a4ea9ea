package editor

import "github.com/seokju-na/geeks-diary-sub001/internal/models"

// RenderConfig is what a host needs to mount an editor for a session.
type RenderConfig struct {
	Mode        string `json:"mode"`
	Language    string `json:"language,omitempty"`
	LineNumbers bool   `json:"lineNumbers"`
	WordWrap    bool   `json:"wordWrap"`
	AutoHeight  bool   `json:"autoHeight"`
	Placeholder string `json:"placeholder,omitempty"`
}

// Renderer derives per-session render options.
type Renderer interface {
	RenderOptions(s *Session) RenderConfig
}

// DefaultRenderer renders text snippets as wrapped markdown and code
// snippets as numbered source in their language.
type DefaultRenderer struct{}

// RenderOptions implements Renderer.
func (DefaultRenderer) RenderOptions(s *Session) RenderConfig {
	if s.Kind == models.SnippetCode {
		lang := s.Language
		if lang == "" {
			lang = "plaintext"
		}
		return RenderConfig{
			Mode:        "code",
			Language:    lang,
			LineNumbers: true,
			AutoHeight:  true,
		}
	}
	return RenderConfig{
		Mode:        "markdown",
		Language:    "markdown",
		WordWrap:    true,
		AutoHeight:  true,
		Placeholder: "Write something...",
	}
}
