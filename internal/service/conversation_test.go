package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/caadev/tutortrainer/internal/adapter/memory"
	"github.com/caadev/tutortrainer/internal/domain"
	"github.com/caadev/tutortrainer/internal/domain/conversation"
	"github.com/caadev/tutortrainer/internal/port/messagequeue"
)

func TestTranscriptServesFromCache(t *testing.T) {
	db := memory.NewStore()
	c := newFakeCache()
	svc := NewConversationService(db, c, nil, time.Minute)
	ctx := context.Background()

	err := db.UpsertConversation(ctx, &conversation.Conversation{
		ThreadRef: "t1", UserID: 123, Username: "Ana",
		Subject: conversation.SubjectMath, Mode: conversation.ModeTutor,
		Name:              "Math Tutor Conversation 1",
		UserMessages:      []conversation.Message{{Content: "what is 2+2", Timestamp: 10}},
		AssistantMessages: []conversation.Message{{Content: "4", Timestamp: 20}},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	first, err := svc.Transcript(ctx, 123, "Math Tutor Conversation 1")
	if err != nil {
		t.Fatalf("first Transcript: %v", err)
	}
	if !strings.Contains(first, "Ana: what is 2+2") {
		t.Errorf("transcript missing user line: %q", first)
	}
	if !strings.Contains(first, "Math Tutee: 4") {
		t.Errorf("transcript missing assistant line: %q", first)
	}

	// Delete the backing row; the cached transcript must still serve.
	if err := db.DeleteConversation(ctx, 123, "Math Tutor Conversation 1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	second, err := svc.Transcript(ctx, 123, "Math Tutor Conversation 1")
	if err != nil {
		t.Fatalf("cached Transcript: %v", err)
	}
	if second != first {
		t.Error("expected cache hit to return the identical transcript")
	}
}

func TestTranscriptMissingConversation(t *testing.T) {
	svc := NewConversationService(memory.NewStore(), nil, nil, 0)

	_, err := svc.Transcript(context.Background(), 123, "Math Tutor Conversation 1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListGrouped(t *testing.T) {
	db := memory.NewStore()
	ctx := context.Background()
	for _, tc := range []struct {
		name string
		mode conversation.Mode
	}{
		{"Math Tutor Conversation 1", conversation.ModeTutor},
		{"Math Tutor Conversation 2", conversation.ModeTutor},
		{"Math Generated Conversation 1", conversation.ModeGenerate},
	} {
		err := db.UpsertConversation(ctx, &conversation.Conversation{
			ThreadRef: "t_" + tc.name, UserID: 123, Username: "Ana",
			Subject: conversation.SubjectMath, Mode: tc.mode, Name: tc.name,
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	svc := NewConversationService(db, nil, nil, 0)

	grouped, err := svc.ListGrouped(ctx, 123)
	if err != nil {
		t.Fatalf("ListGrouped: %v", err)
	}
	if got := len(grouped[conversation.ModeTutor]); got != 2 {
		t.Errorf("tutor group size = %d, want 2", got)
	}
	if got := len(grouped[conversation.ModeGenerate]); got != 1 {
		t.Errorf("generate group size = %d, want 1", got)
	}
	if grouped[conversation.ModeTutor][0] != "Math Tutor Conversation 1" {
		t.Errorf("tutor group order wrong: %v", grouped[conversation.ModeTutor])
	}
}

func TestListAllByUserGroupsAndExcludesViewer(t *testing.T) {
	db := memory.NewStore()
	ctx := context.Background()
	seed := []struct {
		user string
		id   int
		mode conversation.Mode
		name string
	}{
		{"Ana", 123, conversation.ModeTutor, "Math Tutor Conversation 1"},
		{"Ben", 456, conversation.ModeTutee, "Writing Tutee Conversation 1"},
		{"Ana", 123, conversation.ModeTutor, "Math Tutor Conversation 2"},
		{"Ana", 123, conversation.ModeGenerate, "Math Generated Conversation 1"},
		{"CAA Staff", 999, conversation.ModeTutor, "Math Tutor Conversation 1"},
	}
	for _, sd := range seed {
		err := db.UpsertConversation(ctx, &conversation.Conversation{
			ThreadRef: "t_" + sd.user + sd.name, UserID: sd.id, Username: sd.user,
			Subject: conversation.SubjectMath, Mode: sd.mode, Name: sd.name,
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	svc := NewConversationService(db, nil, nil, 0)

	out, err := svc.ListAllByUser(ctx, "CAA Staff")
	if err != nil {
		t.Fatalf("ListAllByUser: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d users, want 2", len(out))
	}
	ana := out[0]
	if ana.Username != "Ana" {
		t.Fatalf("first entry = %+v, want Ana", ana)
	}
	if got := ana.ByMode[conversation.ModeTutor]; len(got) != 2 || got[0] != "Math Tutor Conversation 1" {
		t.Errorf("Ana tutor folder = %v, want both tutor conversations in order", got)
	}
	if got := ana.ByMode[conversation.ModeGenerate]; len(got) != 1 || got[0] != "Math Generated Conversation 1" {
		t.Errorf("Ana generate folder = %v", got)
	}
	if out[1].Username != "Ben" || len(out[1].ByMode[conversation.ModeTutee]) != 1 {
		t.Errorf("second entry = %+v, want Ben with 1 tutee conversation", out[1])
	}
}

func TestAggregateStats(t *testing.T) {
	db := memory.NewStore()
	ctx := context.Background()
	seed := []struct {
		user string
		id   int
		mode conversation.Mode
		name string
	}{
		{"Ana", 123, conversation.ModeTutor, "Math Tutor Conversation 1"},
		{"Ana", 123, conversation.ModeGenerate, "Math Generated Conversation 1"},
		{"Ben", 456, conversation.ModeTutor, "Math Tutor Conversation 1"},
	}
	for _, sd := range seed {
		err := db.UpsertConversation(ctx, &conversation.Conversation{
			ThreadRef: "t_" + sd.user + sd.name, UserID: sd.id, Username: sd.user,
			Subject: conversation.SubjectMath, Mode: sd.mode, Name: sd.name,
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	svc := NewConversationService(db, nil, nil, 0)

	stats, err := svc.AggregateStats(ctx)
	if err != nil {
		t.Fatalf("AggregateStats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.ByMode[conversation.ModeTutor] != 2 {
		t.Errorf("tutor count = %d, want 2", stats.ByMode[conversation.ModeTutor])
	}
	if stats.ByUser["Ana"] != 2 || stats.ByUser["Ben"] != 1 {
		t.Errorf("by user = %v", stats.ByUser)
	}
}

func TestDeleteInvalidatesCacheAndPublishes(t *testing.T) {
	db := memory.NewStore()
	c := newFakeCache()
	q := newFakeQueue()
	svc := NewConversationService(db, c, q, time.Minute)
	ctx := context.Background()

	err := db.UpsertConversation(ctx, &conversation.Conversation{
		ThreadRef: "t1", UserID: 123, Username: "Ana",
		Subject: conversation.SubjectMath, Mode: conversation.ModeTutor,
		Name: "Math Tutor Conversation 1",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	c.data[transcriptKey(123, "Math Tutor Conversation 1")] = []byte("stale")

	if err := svc.Delete(ctx, 123, "Math Tutor Conversation 1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, ok := c.data[transcriptKey(123, "Math Tutor Conversation 1")]; ok {
		t.Error("transcript cache entry survived delete")
	}
	if q.count(messagequeue.SubjectConversationDeleted) != 1 {
		t.Errorf("deleted events = %d, want 1", q.count(messagequeue.SubjectConversationDeleted))
	}
}

func TestDeleteMissingConversation(t *testing.T) {
	svc := NewConversationService(memory.NewStore(), nil, nil, 0)

	err := svc.Delete(context.Background(), 123, "Math Tutor Conversation 1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
