package conversation

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// transcriptTimeLayout matches the display format the desktop client renders.
const transcriptTimeLayout = "2006-01-02 15:04:05"

// FormatTranscript renders a conversation as a plain-text transcript,
// interleaving user and assistant turns by ascending timestamp. User lines
// are labeled with the username, assistant lines with "{subject} Tutee".
// Generated conversations are assistant-only output and render without
// role labels.
func FormatTranscript(c *Conversation) string {
	if c == nil {
		return "Conversation not found."
	}

	type turn struct {
		Message
		role string
	}

	turns := make([]turn, 0, len(c.UserMessages)+len(c.AssistantMessages))
	for _, m := range c.UserMessages {
		turns = append(turns, turn{Message: m, role: c.Username})
	}
	for _, m := range c.AssistantMessages {
		turns = append(turns, turn{Message: m, role: fmt.Sprintf("%s Tutee", c.Subject)})
	}
	sort.SliceStable(turns, func(i, j int) bool {
		return turns[i].Timestamp < turns[j].Timestamp
	})

	var b strings.Builder
	for _, t := range turns {
		ts := time.Unix(t.Timestamp, 0).Format(transcriptTimeLayout)
		if c.Mode == ModeGenerate {
			fmt.Fprintf(&b, "(%s) %s\n\n", ts, t.Content)
			continue
		}
		fmt.Fprintf(&b, "(%s) %s: %s\n\n", ts, t.role, t.Content)
	}
	return b.String()
}
