package meta

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/govalues/decimal"

	"github.com/tinoosan/bank/internal/slug"
)

// Metadata is a small map of variant parameters ("overdraft_limit",
// "interest_rate") with validation and stable JSON encoding.
type Metadata map[string]string

const (
	MaxPairs     = 8
	MaxKeyLen    = 40
	MaxValLen    = 64
	MaxTotalJSON = 1024
)

// Parameter keys understood by the account variants.
const (
	KeyOverdraftLimit = "overdraft_limit"
	KeyInterestRate   = "interest_rate"
)

var ErrUnknownKey = errors.New("metadata unknown key")

// New copies m, normalising keys with slug.Slugify so "Interest Rate" and
// "interest_rate" name the same parameter.
func New(m map[string]string) Metadata {
	if m == nil {
		return Metadata{}
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[slug.Slugify(k)] = strings.TrimSpace(v)
	}
	return out
}

func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (m Metadata) Get(k string) (string, bool) { v, ok := m[k]; return v, ok }

func (m Metadata) Set(k, v string) {
	if len(m) >= MaxPairs {
		// caller should Validate() to detect
		return
	}
	if !slug.IsSlug(k) || len(v) > MaxValLen {
		return
	}
	m[k] = v
}

func (m Metadata) Del(k string) { delete(m, k) }

// Merge copies other's pairs that are not already set in m. Defaults are
// merged under explicit values this way.
func (m Metadata) Merge(other Metadata) {
	if other == nil {
		return
	}
	keys := make([]string, 0, len(other))
	for k := range other {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := m[k]; ok {
			continue
		}
		m.Set(k, other[k])
	}
}

// Decimal parses the value under k. ok is false when k is absent.
func (m Metadata) Decimal(k string) (d decimal.Decimal, ok bool, err error) {
	v, ok := m[k]
	if !ok {
		return decimal.Decimal{}, false, nil
	}
	d, err = decimal.Parse(v)
	if err != nil {
		return decimal.Decimal{}, true, fmt.Errorf("metadata %s: %w", k, err)
	}
	return d, true, nil
}

// Validate checks size limits and that every key is a slug. When allowed is
// non-empty, keys outside it are rejected with ErrUnknownKey.
func (m Metadata) Validate(allowed ...string) error {
	if len(m) > MaxPairs {
		return errors.New("metadata too many pairs")
	}
	for k, v := range m {
		if len(k) == 0 || len(k) > MaxKeyLen {
			return errors.New("metadata key too long or empty")
		}
		if !slug.IsSlug(k) {
			return fmt.Errorf("metadata key %q is not a slug", k)
		}
		if len(v) > MaxValLen {
			return errors.New("metadata value too long")
		}
		if len(allowed) > 0 && !contains(allowed, k) {
			return fmt.Errorf("%w: %s", ErrUnknownKey, k)
		}
	}
	b, err := m.MarshalStableJSON()
	if err != nil {
		return err
	}
	if len(b) > MaxTotalJSON {
		return errors.New("metadata exceeds max json size")
	}
	return nil
}

func contains(list []string, k string) bool {
	for _, s := range list {
		if s == k {
			return true
		}
	}
	return false
}

// MarshalStableJSON returns a deterministic JSON representation with keys sorted.
func (m Metadata) MarshalStableJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, k := range keys {
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(m[k])
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		if i < len(keys)-1 {
			buf.WriteByte(',')
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m Metadata) MarshalJSON() ([]byte, error) { return m.MarshalStableJSON() }

func (m *Metadata) UnmarshalJSON(b []byte) error {
	var tmp map[string]string
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = Metadata{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*m = New(tmp)
	return nil
}
