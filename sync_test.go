package livesync

import (
	"encoding/json"
	"testing"
)

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		name    string
		action  string
		payload string
		want    func(t *testing.T, a SyncAction[message])
		wantErr bool
		wantNil bool
	}{
		{
			name:    "set",
			action:  "set",
			payload: `[{"id":"1"},{"id":"2"}]`,
			want: func(t *testing.T, a SyncAction[message]) {
				set, ok := a.(SetAction[message])
				if !ok {
					t.Fatalf("decoded %T, want SetAction", a)
				}
				if len(set.Items) != 2 {
					t.Errorf("SetAction.Items = %d, want 2", len(set.Items))
				}
			},
		},
		{
			name:    "append",
			action:  "append",
			payload: `{"id":"3","body":"hi"}`,
			want: func(t *testing.T, a SyncAction[message]) {
				app, ok := a.(AppendAction[message])
				if !ok {
					t.Fatalf("decoded %T, want AppendAction", a)
				}
				if app.Item.ID != "3" {
					t.Errorf("AppendAction.Item.ID = %q, want %q", app.Item.ID, "3")
				}
			},
		},
		{
			name:    "prepend",
			action:  "prepend",
			payload: `{"id":"0"}`,
			want: func(t *testing.T, a SyncAction[message]) {
				if _, ok := a.(PrependAction[message]); !ok {
					t.Fatalf("decoded %T, want PrependAction", a)
				}
			},
		},
		{
			name:    "update",
			action:  "update",
			payload: `{"id":"1","changes":{"body":"edited"}}`,
			want: func(t *testing.T, a SyncAction[message]) {
				up, ok := a.(UpdateAction[message])
				if !ok {
					t.Fatalf("decoded %T, want UpdateAction", a)
				}
				if up.ID != "1" {
					t.Errorf("UpdateAction.ID = %q, want %q", up.ID, "1")
				}
			},
		},
		{
			name:    "remove with object payload",
			action:  "remove",
			payload: `{"id":"1"}`,
			want: func(t *testing.T, a SyncAction[message]) {
				rm, ok := a.(RemoveAction[message])
				if !ok {
					t.Fatalf("decoded %T, want RemoveAction", a)
				}
				if rm.ID != "1" {
					t.Errorf("RemoveAction.ID = %q, want %q", rm.ID, "1")
				}
			},
		},
		{
			name:    "remove with bare string payload",
			action:  "remove",
			payload: `"1"`,
			want: func(t *testing.T, a SyncAction[message]) {
				rm := a.(RemoveAction[message])
				if rm.ID != "1" {
					t.Errorf("RemoveAction.ID = %q, want %q", rm.ID, "1")
				}
			},
		},
		{
			name:    "unknown action decodes to nil",
			action:  "truncate",
			payload: `{}`,
			wantNil: true,
		},
		{
			name:    "malformed payload",
			action:  "set",
			payload: `{not json`,
			wantErr: true,
		},
		{
			name:    "update without id",
			action:  "update",
			payload: `{"changes":{"body":"x"}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := decodeAction[message](tt.action, json.RawMessage(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatal("decodeAction() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeAction() error = %v", err)
			}
			if tt.wantNil {
				if a != nil {
					t.Fatalf("decodeAction() = %T, want nil for unknown action", a)
				}
				return
			}
			tt.want(t, a)
		})
	}
}

func TestStore_ApplyUpdateShallowMerges(t *testing.T) {
	// fields absent from the changes payload keep their current values
	store := newTestStore(t)
	store.Set([]message{{ID: "1", Body: "original", TS: 7}})

	store.Apply(UpdateAction[message]{ID: "1", Changes: json.RawMessage(`{"body":"edited"}`)})

	m, ok := store.Find("1")
	if !ok {
		t.Fatal("Find(1) = not found, want found")
	}
	if m.Body != "edited" {
		t.Errorf("Body = %q, want %q", m.Body, "edited")
	}
	if m.TS != 7 {
		t.Errorf("TS = %d, want 7 (untouched by partial update)", m.TS)
	}
}

func TestStore_ApplyUpdateMissingIDIsNoOp(t *testing.T) {
	store := newTestStore(t)
	store.Set([]message{{ID: "1", Body: "a"}})

	store.Apply(UpdateAction[message]{ID: "ghost", Changes: json.RawMessage(`{"body":"b"}`)})

	if got := store.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestStore_ApplySet(t *testing.T) {
	store := newTestStore(t)
	store.Set([]message{{ID: "old"}})

	store.Apply(SetAction[message]{Items: []message{{ID: "a"}, {ID: "b"}}})

	if got := store.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
	if _, ok := store.Find("old"); ok {
		t.Error("Find(old) = found, want replaced away")
	}
}
