// Package conversation holds the conversation domain model: subjects,
// interaction modes, message history, and the naming scheme that ties a
// user's conversations to remote assistant threads.
package conversation

import (
	"fmt"

	"github.com/caadev/tutortrainer/internal/domain"
	"github.com/caadev/tutortrainer/internal/domain/identity"
)

// Subject is an academic subject a conversation is scoped to.
type Subject string

// Supported subjects.
const (
	SubjectWriting   Subject = "Writing"
	SubjectChemistry Subject = "Chemistry"
	SubjectBiology   Subject = "Biology"
	SubjectPhysics   Subject = "Physics"
	SubjectNursing   Subject = "Nursing"
	SubjectMath      Subject = "Math"
	SubjectBusiness  Subject = "Business"
)

// Subjects lists every supported subject.
func Subjects() []Subject {
	return []Subject{
		SubjectWriting, SubjectChemistry, SubjectBiology,
		SubjectPhysics, SubjectNursing, SubjectMath, SubjectBusiness,
	}
}

// ParseSubject validates a subject string.
func ParseSubject(s string) (Subject, error) {
	for _, sub := range Subjects() {
		if string(sub) == s {
			return sub, nil
		}
	}
	return "", fmt.Errorf("unknown subject %q: %w", s, domain.ErrValidation)
}

// Mode is the interaction role the assistant plays.
type Mode string

// Supported modes. ModeGenerate produces synthetic dialogue unattended.
const (
	ModeTutor    Mode = "Tutor"
	ModeTutee    Mode = "Tutee"
	ModeGenerate Mode = "Generate Conversation"
)

// Modes lists every supported mode.
func Modes() []Mode {
	return []Mode{ModeTutor, ModeTutee, ModeGenerate}
}

// ParseMode validates a mode string. Unknown modes are rejected here so the
// assistant lookup downstream only ever sees the closed set.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q: %w", s, domain.ErrValidation)
}

// Message is a single turn, timestamped in epoch seconds by the assistant
// service (which is authoritative for ordering within a thread).
type Message struct {
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// Conversation is the locally persisted record combining a remote thread's
// message history with subject/mode/name metadata. ThreadRef is the primary
// upsert key and unique across all conversations.
type Conversation struct {
	ThreadRef         string    `json:"thread_ref"`
	UserID            int       `json:"user_id"`
	Username          string    `json:"username"`
	Subject           Subject   `json:"subject"`
	Mode              Mode      `json:"mode"`
	Name              string    `json:"conversation_name"`
	UserMessages      []Message `json:"user_messages"`
	AssistantMessages []Message `json:"assistant_messages"`
}

// Session carries the caller's conversational context through a message
// exchange. It replaces shared mutable state: every call names its own
// user, subject, mode, and conversation.
type Session struct {
	UserID   int     `json:"user_id"`
	Username string  `json:"username"`
	Subject  Subject `json:"subject"`
	Mode     Mode    `json:"mode"`
	Name     string  `json:"conversation_name"`
}

// Validate checks the session fields needed before any store or assistant call.
func (s Session) Validate() error {
	if s.UserID < identity.MinUserID || s.UserID > identity.MaxUserID {
		return fmt.Errorf("user_id %d out of range: %w", s.UserID, domain.ErrValidation)
	}
	if s.Username == "" {
		return fmt.Errorf("username is required: %w", domain.ErrValidation)
	}
	if _, err := ParseSubject(string(s.Subject)); err != nil {
		return err
	}
	if _, err := ParseMode(string(s.Mode)); err != nil {
		return err
	}
	if s.Name == "" {
		return fmt.Errorf("conversation_name is required: %w", domain.ErrValidation)
	}
	return nil
}
