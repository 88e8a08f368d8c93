package syncx_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mind-engage/mindengage-quiz/internal/db/dbtest"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

func TestEventRepo_AppendAndList(t *testing.T) {
	ctx := context.Background()
	dbh := dbtest.Open(t)
	repo := syncx.NewEventRepo("")

	if err := repo.Append(ctx, dbh, syncx.EventAttemptStarted, "a1", map[string]string{"quizId": "q"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.Append(ctx, dbh, syncx.EventAttemptStarted, "a2", nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.Append(ctx, dbh, syncx.EventAttemptSubmitted, "a1", map[string]int{"score": 6}); err != nil {
		t.Fatalf("append: %v", err)
	}

	evs, err := repo.ListByKey(ctx, dbh, "a1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("events = %+v", evs)
	}
	if evs[0].Type != syncx.EventAttemptStarted || evs[1].Type != syncx.EventAttemptSubmitted || evs[0].Seq >= evs[1].Seq {
		t.Fatalf("events out of order: %+v", evs)
	}
	if evs[0].SiteID != "local" {
		t.Fatalf("site id = %q, want local", evs[0].SiteID)
	}
	var data map[string]int
	if err := json.Unmarshal([]byte(evs[1].DataJSON), &data); err != nil || data["score"] != 6 {
		t.Fatalf("data = %q, %v", evs[1].DataJSON, err)
	}
}
