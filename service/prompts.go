package service

import (
	"fmt"

	"pharmassist-backend/websearch"
)

const noContextNotice = "No specific context was found."

func standardPrompt(question, context string) string {
	if context == "" {
		context = noContextNotice
	}
	return fmt.Sprintf(`You are an expert assistant for Indian pharmacy regulations. Your role is to answer questions based ONLY on the provided regulatory context. Do not use external knowledge.

**Provided Context:**
---
%s
---

**User's Question:**
"%s"

Based on the provided context, please answer the user's question. If the context does not contain the answer, state that you cannot answer based on the information provided.`, context, question)
}

func enhancedPrompt(question, context, medications string) string {
	if context == "" {
		context = noContextNotice
	}
	return fmt.Sprintf(`You are an expert assistant for Indian pharmacy regulations. A premium user is asking a question.
Your role is to answer based ONLY on the provided regulatory context, but you MUST ALSO consider the user's current medication list for potential interactions or special considerations.

**Provided Regulatory Context:**
---
%s
---

**User's Current Medications:**
---
%s
---

**User's Question:**
"%s"

Based on the context and the user's medication list, please provide a detailed and cautious answer. If discussing any substance, mention if it might interact with the user's current medications. If no context is found, state that.`, context, medications, question)
}

func researchPrompt(question, medications string) string {
	prompt := fmt.Sprintf(`You are an expert assistant for Indian pharmacy regulations. Use the %s tool to look up official .gov.in sources before answering, and cite the source URLs you relied on. If the sources do not answer the question, say so.

**User's Question:**
"%s"`, websearch.ToolName, question)
	if medications != "" {
		prompt += fmt.Sprintf(`

**User's Current Medications:**
---
%s
---
Mention any interaction with these medications.`, medications)
	}
	return prompt
}

func interactionPrompt(items string) string {
	return fmt.Sprintf(`You are an expert pharmacological assistant. Your role is to identify and explain potential interactions between a list of drugs, foods, and/or medical conditions.

**Please analyze the following items for potential interactions:**
---
%s
---

Provide a clear, concise, and easy-to-understand summary of any potential interactions. If there are no significant interactions, please state that.
**Disclaimer:** This is for informational purposes only and does not constitute medical advice.`, items)
}
