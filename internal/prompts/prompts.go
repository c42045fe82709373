package prompts

import (
	"fmt"
	"strings"
)

// ============================================================================
// VLM Prompts (Vision Language Model)
// ============================================================================

// VLMSystemPrompt defines the role for frame and image captioning.
const VLMSystemPrompt = `You are a visual analysis assistant. Describe the visual content of the image clearly and concisely so the description can be used for semantic search. Mention the main subjects, their actions, the setting, and any visible text.`

// VLMUserPrompt asks for a single-paragraph caption.
const VLMUserPrompt = `Describe this image in one concise paragraph:`

// ============================================================================
// LLM Summary Prompts
// ============================================================================

// ImageSummaryPrompt builds the summarization prompt for a single image
// from its visual caption and any text extracted from the image.
// Parameters:
//   - caption: VLM-generated visual description.
//   - ocrText: text extracted from the image; may be empty.
//
// Returns:
//   - string: prompt ready for the summarization model.
func ImageSummaryPrompt(caption, ocrText string) string {
	var b strings.Builder
	b.WriteString("You are analyzing an image. Your goal is to describe the visual content clearly and concisely.\n\n")
	fmt.Fprintf(&b, "Visual Description:\n%s\n", strings.TrimSpace(caption))
	if strings.TrimSpace(ocrText) != "" {
		fmt.Fprintf(&b, "\nExtracted Text (OCR):\n%s\n", strings.TrimSpace(ocrText))
	}
	b.WriteString("\nGenerate a concise summary:")
	return b.String()
}

// VideoSummaryPrompt builds the summarization prompt for a video from its
// keyframe captions and audio transcript.
// Parameters:
//   - visualCaptions: concatenated per-keyframe captions.
//   - audioTranscript: speech transcript; may be empty for silent videos.
//
// Returns:
//   - string: prompt ready for the summarization model.
func VideoSummaryPrompt(visualCaptions, audioTranscript string) string {
	var b strings.Builder
	b.WriteString("You are analyzing a video that contains both visual scenes and spoken audio.\n")
	b.WriteString("Summarize the main points based on both modalities in a clear and neutral tone.\n\n")
	fmt.Fprintf(&b, "Visual Captions:\n%s\n", strings.TrimSpace(visualCaptions))
	if strings.TrimSpace(audioTranscript) != "" {
		fmt.Fprintf(&b, "\nAudio Transcript:\n%s\n", strings.TrimSpace(audioTranscript))
	}
	b.WriteString("\nGenerate a clear and concise summary:")
	return b.String()
}

// ============================================================================
// RAG Answer Prompt
// ============================================================================

// NoRelevantDocuments is the context placeholder used when retrieval finds
// nothing; the answer model still runs and must acknowledge the lack of
// evidence.
const NoRelevantDocuments = "No relevant documents were found to support the answer."

// AnswerPrompt builds the answer-generation prompt from the retrieved
// context and the user's question.
// Parameters:
//   - context: concatenated summaries and transcripts, or NoRelevantDocuments.
//   - query: the user's original question.
//
// Returns:
//   - string: full RAG prompt sent to the answer model.
func AnswerPrompt(context, query string) string {
	return fmt.Sprintf(`You are an expert assistant helping to answer questions based on media files.

Context:
%s

Question:
%s

Answer:`, context, query)
}
