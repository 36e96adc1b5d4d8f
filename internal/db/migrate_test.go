package db

import (
	"strings"
	"testing"
)

func TestSchema_HasCoreTables(t *testing.T) {
	for _, table := range []string{
		"competitor", "video", "playlist", "playlist_video",
		"pattern", "feedback", "semantic_exemplar",
	} {
		if !strings.Contains(Schema(), "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Errorf("schema is missing table %s", table)
		}
	}
}

func TestSchema_Indexes(t *testing.T) {
	s := Schema()
	if !strings.Contains(s, "UNIQUE (pattern_text, category, language)") {
		t.Error("pattern triple must be unique")
	}
	if !strings.Contains(s, "ON feedback (target_type, target_id)") {
		t.Error("feedback needs a (target_type, target_id) index")
	}
	if !strings.Contains(s, "pg_notify('classification_queue'") {
		t.Error("inserts must notify the classification queue")
	}
}
