package conversation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/caadev/tutortrainer/internal/domain"
)

// NamePrefix returns the name prefix (including the trailing space) for a
// subject and mode. Generated conversations use their own wording so the
// staff tree view can group them separately.
func NamePrefix(subject Subject, mode Mode) string {
	if mode == ModeGenerate {
		return fmt.Sprintf("%s Generated Conversation ", subject)
	}
	return fmt.Sprintf("%s %s Conversation ", subject, mode)
}

// NameSuffix parses the sequence number off a stored conversation name for
// the given prefix. Returns (0, false, nil) when the name does not carry the
// prefix at all. A matching prefix with a non-numeric or non-positive tail is
// corrupt state and fails with ErrBadName rather than being skipped.
func NameSuffix(name, prefix string) (int, bool, error) {
	if !strings.HasPrefix(name, prefix) {
		return 0, false, nil
	}
	tail := strings.TrimPrefix(name, prefix)
	n, err := strconv.Atoi(tail)
	if err != nil || n < 1 {
		return 0, false, fmt.Errorf("name %q: suffix %q: %w", name, tail, domain.ErrBadName)
	}
	return n, true, nil
}
