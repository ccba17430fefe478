// Package prompts centralizes the LLM prompt templates used by the service.
package prompts

// InsightSystemPrompt frames the model as a YouTube content analyst.
const InsightSystemPrompt = `You are a YouTube content analyst.`

// InsightUserPrompt embeds a video's title and assembled context (description
// plus transcript when available). Kept short on purpose: the answer target
// is one to two sentences.
const InsightUserPrompt = `Based on the title and description below, explain in 1-2 sentences why this video might be performing well, focusing on emotional hook, clarity, or unique topic.

Title: %s

Description: %s

Insight:`
