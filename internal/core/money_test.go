package core

import (
	"encoding/json"
	"testing"
)

func TestMoneyJSON(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{`25`, 2500, true},
		{`25.00`, 2500, true},
		{`"19.99"`, 1999, true},
		{`0.005`, 1, true},
		{`-3`, -300, true},
		{`null`, 0, true},
		{`"abc"`, 0, false},
		{`true`, 0, false},
		{`1000000000000`, MaxAmountCents, true},
		{`1000000000000.01`, 0, false},
		{`-1000000000000.01`, 0, false},
		{`184467440737095516.17`, 0, false},
		{`"1e30"`, 0, false},
	}
	for _, tc := range cases {
		var m Money
		err := json.Unmarshal([]byte(tc.in), &m)
		if tc.ok != (err == nil) {
			t.Fatalf("%s: ok=%v err=%v", tc.in, tc.ok, err)
		}
		if tc.ok && m.Cents != tc.cents {
			t.Fatalf("%s: expected %d cents, got %d", tc.in, tc.cents, m.Cents)
		}
	}

	out, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{Money{Cents: 2500}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"amount":25.00}` {
		t.Fatalf("unexpected json %s", out)
	}
}

func TestMoneyValidate(t *testing.T) {
	cases := []struct {
		cents int64
		ok    bool
	}{
		{1, true},
		{MaxAmountCents, true},
		{0, false},
		{-1, false},
		{MaxAmountCents + 1, false},
	}
	for _, tc := range cases {
		err := (Money{Cents: tc.cents}).Validate()
		if tc.ok != (err == nil) {
			t.Fatalf("%d: ok=%v err=%v", tc.cents, tc.ok, err)
		}
	}
}
