package meta

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewNormalisesKeys(t *testing.T) {
	m := New(map[string]string{"Interest Rate": " 0.02 "})
	if v, ok := m.Get(KeyInterestRate); !ok || v != "0.02" {
		t.Fatalf("get failed: %+v", m)
	}
}

func TestSetGetDelMergeClone(t *testing.T) {
	m := New(nil)
	m.Set(KeyOverdraftLimit, "250")
	if v, ok := m.Get(KeyOverdraftLimit); !ok || v != "250" {
		t.Fatalf("get failed")
	}
	m.Merge(New(map[string]string{KeyOverdraftLimit: "500", KeyInterestRate: "0.01"}))
	if v, _ := m.Get(KeyOverdraftLimit); v != "250" {
		t.Fatalf("merge overwrote explicit value: %s", v)
	}
	if v, ok := m.Get(KeyInterestRate); !ok || v != "0.01" {
		t.Fatalf("merge failed")
	}
	cloned := m.Clone()
	if len(cloned) != 2 || cloned[KeyOverdraftLimit] != "250" {
		t.Fatalf("clone failed: %+v", cloned)
	}
	m.Del(KeyOverdraftLimit)
	if _, ok := m.Get(KeyOverdraftLimit); ok {
		t.Fatalf("del failed")
	}
	m.Set("Bad Key", "x")
	if _, ok := m.Get("Bad Key"); ok {
		t.Fatalf("non-slug key accepted")
	}
}

func TestDecimal(t *testing.T) {
	m := New(map[string]string{KeyInterestRate: "0.015", KeyOverdraftLimit: "lots"})
	d, ok, err := m.Decimal(KeyInterestRate)
	if err != nil || !ok || d.String() != "0.015" {
		t.Fatalf("decimal = %s %v %v", d, ok, err)
	}
	if _, ok, err := m.Decimal(KeyOverdraftLimit); !ok || err == nil {
		t.Fatalf("expected parse error")
	}
	if _, ok, err := m.Decimal("missing"); ok || err != nil {
		t.Fatalf("expected absent key")
	}
}

func TestValidation(t *testing.T) {
	long := make([]byte, MaxValLen+1)
	for i := range long {
		long[i] = '9'
	}
	if err := (Metadata{"k1": string(long)}).Validate(); err == nil {
		t.Fatalf("expected value too long")
	}
	if err := (Metadata{"Not Slug": "1"}).Validate(); err == nil {
		t.Fatalf("expected slug error")
	}
	err := New(map[string]string{"colour": "red"}).Validate(KeyOverdraftLimit, KeyInterestRate)
	if !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected unknown key, got %v", err)
	}
	if err := New(map[string]string{KeyInterestRate: "0.01"}).Validate(KeyInterestRate); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestStableJSONAndRoundtrip(t *testing.T) {
	m := New(map[string]string{KeyOverdraftLimit: "500", KeyInterestRate: "0.01"})
	b, _ := m.MarshalStableJSON()
	if string(b) != `{"interest_rate":"0.01","overdraft_limit":"500"}` {
		t.Fatalf("unexpected stable json: %s", string(b))
	}
	var back Metadata
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := back.Validate(); err != nil {
		t.Fatalf("validate roundtrip: %v", err)
	}
}
