package ollama

import (
	"strings"
	"text/template"
)

// RenderPrompt executes a prompt template against data. Unknown keys fail
// the render instead of printing "<no value>" into the prompt.
func RenderPrompt(text string, data any) (string, error) {
	tpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if err := tpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(sb.String()), nil
}
