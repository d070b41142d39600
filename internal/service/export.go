package service

import (
	"context"
	"fmt"

	"github.com/caadev/tutortrainer/internal/adapter/export"
	"github.com/caadev/tutortrainer/internal/port/database"
)

// ExportService writes conversation transcripts to files.
type ExportService struct {
	db       database.Store
	exporter *export.Exporter
	convs    *ConversationService
}

// NewExportService creates a new ExportService.
func NewExportService(db database.Store, exporter *export.Exporter, convs *ConversationService) *ExportService {
	return &ExportService{db: db, exporter: exporter, convs: convs}
}

// Export renders a conversation transcript and writes it to disk as
// "{username} - {conversation_name}.{ext}". Returns the written path.
func (s *ExportService) Export(ctx context.Context, userID int, name string, format export.Format) (string, error) {
	conv, err := s.db.GetConversation(ctx, userID, name)
	if err != nil {
		return "", err
	}
	transcript, err := s.convs.Transcript(ctx, userID, name)
	if err != nil {
		return "", err
	}
	path, err := s.exporter.Export(conv.Username, name, format, transcript)
	if err != nil {
		return "", fmt.Errorf("export transcript: %w", err)
	}
	return path, nil
}
