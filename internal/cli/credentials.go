package cli

import (
	"strings"
)

// APIKeyPrompt asks for a missing API key.
const APIKeyPrompt = "API KEY (q to quit): "

// PromptAPIKey asks until a non-empty key or an exit keyword is entered.
// ok is false when the user chose to quit.
func PromptAPIKey(p Prompter) (key string, ok bool, err error) {
	for {
		line, err := p.Prompt(APIKeyPrompt)
		if err != nil {
			if endsSession(err) {
				return "", false, nil
			}
			return "", false, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if IsExitResponse(line) {
			return "", false, nil
		}
		return line, true, nil
	}
}
