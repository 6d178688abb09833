package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/colthorp/threadsum-go/internal/core"
	"github.com/colthorp/threadsum-go/internal/forum"
)

const messageSeparator = "\n\n---\n\n"

// FormatMessages renders messages as dated blocks separated by "---".
func FormatMessages(msgs []forum.Message) string {
	blocks := make([]string, 0, len(msgs))
	for _, m := range msgs {
		date := m.Date
		if date == "" {
			date = core.UnknownDate
		}
		blocks = append(blocks, fmt.Sprintf("Date: %s\nMessage: %s", core.StandardizeDate(date), m.Content))
	}
	return strings.Join(blocks, messageSeparator)
}

func summaryPreamble(now time.Time) []string {
	return []string{
		fmt.Sprintf("Please summarize the following forum discussion thread. Each message includes its posting date. The current date is %s.", core.FormatDate(now)),
		"Consider the dates of the messages to identify the most current information and highlight if some points are outdated.",
	}
}

// SummaryPrompt builds the summarization prompt.
func SummaryPrompt(msgs []forum.Message, keywords []string, now time.Time) string {
	parts := summaryPreamble(now)
	parts = append(parts, "Extract the key points, main questions, and any conclusions or consensus reached by the users, noting the recency of information.")
	if len(keywords) > 0 {
		parts = append(parts, fmt.Sprintf("Pay special attention to topics related to: %s.", strings.Join(keywords, ", ")))
	}
	parts = append(parts, fmt.Sprintf("The thread:\n\n%s\n\nSummary:", FormatMessages(msgs)))
	return strings.Join(parts, "\n")
}

// TokenPrompt builds the text whose size is estimated before summarizing.
func TokenPrompt(msgs []forum.Message, now time.Time) string {
	parts := summaryPreamble(now)
	parts = append(parts, fmt.Sprintf("The thread:\n\n%s\n\nSummary:", FormatMessages(msgs)))
	return strings.Join(parts, "\n")
}

// QuestionPrompt builds the prompt for answering a question about the thread.
func QuestionPrompt(msgs []forum.Message, question string, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Current date: %s.\n\n", core.FormatDate(now))
	sb.WriteString("Consider the posting dates of the messages when answering. More recent information is generally more relevant. If the information might be outdated, please say so.\n\n")
	sb.WriteString("Context from the thread (includes message dates):\n")
	sb.WriteString(FormatMessages(msgs))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Based on the above, please answer the question: %q. ", question)
	sb.WriteString("If the answer is not found in the provided messages, say so. ")
	sb.WriteString("If the question is subjective or opinion-based, acknowledge that.")
	return sb.String()
}
