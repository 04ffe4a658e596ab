package backup

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jchenli/finboard/internal/domain"
	"github.com/rs/zerolog"
)

type fakeWriter struct {
	objects map[string][]byte
	err     error
}

func (f *fakeWriter) Write(ctx context.Context, objectName string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[objectName] = data
	return nil
}

func TestExport(t *testing.T) {
	w := &fakeWriter{}
	e := NewWithWriter("finboard-backups", w, zerolog.Nop())
	e.now = func() time.Time { return time.Date(2023, 10, 26, 14, 30, 5, 0, time.UTC) }

	state := domain.AppState{
		User:     &domain.User{ID: "u1", Name: "Tester"},
		Accounts: []domain.BankAccount{{ID: "a1", Name: "Main", Balance: 150000}},
	}
	name, err := e.Export(context.Background(), "u1", state)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if name != "backups/u1/20231026T143005Z.json" {
		t.Fatalf("object name = %q", name)
	}

	var got domain.AppState
	if err := json.Unmarshal(w.objects[name], &got); err != nil {
		t.Fatalf("exported object is not valid JSON: %v", err)
	}
	if got.User == nil || got.User.ID != "u1" || len(got.Accounts) != 1 || got.Accounts[0].Balance != 150000 {
		t.Fatalf("exported state = %+v", got)
	}
}

func TestExportRequiresUID(t *testing.T) {
	e := NewWithWriter("b", &fakeWriter{}, zerolog.Nop())
	if _, err := e.Export(context.Background(), "", domain.AppState{}); err == nil {
		t.Fatal("Export with empty uid succeeded, want error")
	}
}

func TestExportPropagatesWriteFailure(t *testing.T) {
	boom := errors.New("bucket unavailable")
	e := NewWithWriter("b", &fakeWriter{err: boom}, zerolog.Nop())

	_, err := e.Export(context.Background(), "u1", domain.AppState{})
	if !errors.Is(err, boom) {
		t.Fatalf("Export error = %v, want wrapped %v", err, boom)
	}
	if !strings.Contains(err.Error(), "backups/u1/") {
		t.Errorf("error should name the object: %v", err)
	}
}
