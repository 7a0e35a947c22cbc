package services

import (
	"fmt"
	"sort"
	"strings"

	"memoryd/domain/memory"
)

// Heuristic caps. Summaries are deterministic string templates over counted
// and filtered fields, never generative text, so they stay reproducible.
const (
	dailyTopicCount    = 3
	topicCount         = 10
	keyPointCount      = 5
	importantEventsCap = 10
	keyContextCap      = 5

	importanceKeyEvent = 0.7
	importanceCritical = 0.8
)

// topTags returns the n most frequent tags across entries, descending by
// count with lexicographic tie-break
func topTags(entries []*memory.Entry, n int) []string {
	counts := map[string]int{}
	for _, e := range entries {
		for _, t := range e.Tags {
			counts[t]++
		}
	}
	tags := make([]string, 0, len(counts))
	for t := range counts {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if len(tags) > n {
		tags = tags[:n]
	}
	return tags
}

// dailySummary builds the heuristic one-line summary of a day's entries.
// An empty day yields an empty summary, not an error.
func dailySummary(entries []*memory.Entry) string {
	if len(entries) == 0 {
		return ""
	}

	important, userMsgs, assistantMsgs := 0, 0, 0
	for _, e := range entries {
		if e.Importance >= importanceKeyEvent {
			important++
		}
		switch e.Role {
		case memory.RoleUser:
			userMsgs++
		case memory.RoleAssistant:
			assistantMsgs++
		}
	}

	var parts []string
	if important > 0 {
		parts = append(parts, fmt.Sprintf("Key events: %d important interactions", important))
	}
	if userMsgs > 0 {
		parts = append(parts, fmt.Sprintf("User interactions: %d messages", userMsgs))
	}
	if assistantMsgs > 0 {
		parts = append(parts, fmt.Sprintf("Assistant responses: %d messages", assistantMsgs))
	}
	if topics := topTags(entries, dailyTopicCount); len(topics) > 0 {
		parts = append(parts, fmt.Sprintf("Topics: %s", strings.Join(topics, ", ")))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ". ") + "."
}

// conversationNarrative concatenates the earliest user messages in the
// window, each truncated, capped at keyPointCount lines
func conversationNarrative(entries []*memory.Entry) string {
	userMsgs := make([]*memory.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Role == memory.RoleUser {
			userMsgs = append(userMsgs, e)
		}
	}
	if len(userMsgs) == 0 {
		return "No recent conversation."
	}

	sort.SliceStable(userMsgs, func(i, j int) bool {
		return userMsgs[i].Timestamp < userMsgs[j].Timestamp
	})
	if len(userMsgs) > keyPointCount {
		userMsgs = userMsgs[:keyPointCount]
	}

	lines := make([]string, 0, len(userMsgs))
	for _, e := range userMsgs {
		lines = append(lines, "User: "+truncate(e.Content, 100))
	}
	return strings.Join(lines, "\n")
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
