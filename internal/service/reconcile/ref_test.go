package reconcile

import (
	"encoding/json"
	"testing"
)

func TestEntityRefUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		persisted bool
		pending   bool
		id        uint
		token     string
	}{
		{name: "number", input: `42`, persisted: true, id: 42},
		{name: "numeric string", input: `"42"`, persisted: true, id: 42},
		{name: "placeholder token", input: `"new_3"`, pending: true, token: "new_3"},
		{name: "null", input: `null`},
		{name: "empty string", input: `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ref EntityRef
			if err := json.Unmarshal([]byte(tt.input), &ref); err != nil {
				t.Fatalf("unmarshal %s error: %v", tt.input, err)
			}
			if ref.IsPersisted() != tt.persisted {
				t.Fatalf("IsPersisted=%v, want %v", ref.IsPersisted(), tt.persisted)
			}
			if ref.IsPending() != tt.pending {
				t.Fatalf("IsPending=%v, want %v", ref.IsPending(), tt.pending)
			}
			if ref.ID() != tt.id {
				t.Fatalf("ID=%d, want %d", ref.ID(), tt.id)
			}
			if ref.Token() != tt.token {
				t.Fatalf("Token=%q, want %q", ref.Token(), tt.token)
			}
		})
	}
}

func TestEntityRefUnmarshalRejectsNonScalar(t *testing.T) {
	var ref EntityRef
	if err := json.Unmarshal([]byte(`{"id":1}`), &ref); err == nil {
		t.Fatalf("expected error for object value")
	}
}

func TestEntityRefMarshalRoundtrip(t *testing.T) {
	data, err := json.Marshal(PersistedRef(7))
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if string(data) != "7" {
		t.Fatalf("persisted ref marshaled to %s", data)
	}

	data, err = json.Marshal(PendingRef("new_1"))
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if string(data) != `"new_1"` {
		t.Fatalf("pending ref marshaled to %s", data)
	}

	data, err = json.Marshal(EntityRef{})
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if string(data) != "null" {
		t.Fatalf("zero ref marshaled to %s", data)
	}
}

func TestIDMapResolve(t *testing.T) {
	m := NewIDMap()
	m.Bind("new_1", 101)

	// 持久化 id 原样返回
	id, err := m.Resolve(PersistedRef(5))
	if err != nil {
		t.Fatalf("resolve persisted error: %v", err)
	}
	if id != 5 {
		t.Fatalf("resolve persisted = %d, want 5", id)
	}

	// 已绑定的占位符
	id, err = m.Resolve(PendingRef("new_1"))
	if err != nil {
		t.Fatalf("resolve bound token error: %v", err)
	}
	if id != 101 {
		t.Fatalf("resolve bound token = %d, want 101", id)
	}

	// 未绑定的占位符必须报错，不允许静默兜底
	if _, err := m.Resolve(PendingRef("new_2")); err == nil {
		t.Fatalf("expected error for unbound token")
	}

	// 空引用
	if _, err := m.Resolve(EntityRef{}); err == nil {
		t.Fatalf("expected error for zero ref")
	}
}
