// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

package branchrule

import (
	"reflect"
	"testing"
)

func TestSplitUsers(t *testing.T) {
	cases := []struct {
		column string
		want   []string
	}{
		{"", nil},
		{"alice", []string{"alice"}},
		{"alice,bob", []string{"alice", "bob"}},
		{",alice,,bob,", []string{"alice", "bob"}},
		{" alice , bob ", []string{"alice", "bob"}},
		{"bob,bob", []string{"bob", "bob"}}, // multiset: duplicates survive
	}
	for _, tc := range cases {
		if got := SplitUsers(tc.column); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("SplitUsers(%q) = %v, want %v", tc.column, got, tc.want)
		}
	}
}

func TestJoinUsersRoundTrip(t *testing.T) {
	users := []string{"alice", "bob", "bob"}
	if got := SplitUsers(JoinUsers(users)); !reflect.DeepEqual(got, users) {
		t.Errorf("round trip = %v, want %v", got, users)
	}
	if got := JoinUsers(nil); got != "" {
		t.Errorf("JoinUsers(nil) = %q, want empty", got)
	}
}

func TestAddUnique(t *testing.T) {
	users, added := AddUnique([]string{"alice"}, "bob")
	if !added || len(users) != 2 {
		t.Fatalf("AddUnique new user: added=%v users=%v", added, users)
	}

	users, added = AddUnique(users, "alice")
	if added {
		t.Error("AddUnique duplicated an existing entry")
	}
	if len(users) != 2 {
		t.Errorf("set size changed on duplicate add: %v", users)
	}
}

func TestRemoveOne(t *testing.T) {
	users, removed := RemoveOne([]string{"bob", "carol", "bob"}, "bob")
	if !removed {
		t.Fatal("RemoveOne did not remove")
	}
	if want := []string{"carol", "bob"}; !reflect.DeepEqual(users, want) {
		t.Errorf("after first removal: %v, want %v", users, want)
	}

	users, removed = RemoveOne(users, "bob")
	if !removed || len(users) != 1 {
		t.Errorf("second removal: removed=%v users=%v", removed, users)
	}

	_, removed = RemoveOne(users, "bob")
	if removed {
		t.Error("removal succeeded with no occurrence left")
	}

	_, removed = RemoveOne(nil, "bob")
	if removed {
		t.Error("removal from empty list succeeded")
	}
}

func TestRemoveOneDoesNotAliasInput(t *testing.T) {
	original := []string{"bob", "carol"}
	RemoveOne(original, "bob")
	if original[1] != "carol" {
		t.Error("RemoveOne mutated the input slice")
	}
}

func TestSanitizeUserID(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"v_zccgzhang", "v_zccgzhang"},
		{"v_zccgzhang(Display Name)", "v_zccgzhang"},
		{"v_zccgzhang（张匆匆）", "v_zccgzhang"},
		{"user.name-01", "username01"},
		{"@alice", "alice"},
		{"(only display)", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SanitizeUserID(tc.raw); got != tc.want {
			t.Errorf("SanitizeUserID(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
