package qa

import "fmt"

const promptTemplate = `Answer the question using the information from the fish knowledge graph below. If it cannot be answered from this information, say why.

Knowledge:
%s

Question: %s

Answer concisely and professionally, and cite the specific data sources where appropriate.`

// BuildPrompt combines the knowledge block and the question into the single
// user message sent to the model.
func BuildPrompt(knowledge, question string) string {
	return fmt.Sprintf(promptTemplate, knowledge, question)
}
