package model

import (
	"reflect"
	"testing"
)

func TestParseSelection(t *testing.T) {
	got, err := ParseSelection(" Admin, Editor ,,Viewer ")
	if err != nil {
		t.Fatal(err)
	}
	want := SelectionRequest{"Admin", "Editor", "Viewer"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseSelection = %v, want %v", got, want)
	}
	if _, err := ParseSelection(" , "); err == nil {
		t.Error("empty selection should fail")
	}
}

func TestParseDateRule(t *testing.T) {
	for _, s := range []string{"pastOnly", " futureOnly "} {
		if _, err := ParseDateRule(s); err != nil {
			t.Errorf("ParseDateRule(%q): %v", s, err)
		}
	}
	for _, s := range []string{"", "past", "PASTONLY"} {
		if _, err := ParseDateRule(s); err == nil {
			t.Errorf("ParseDateRule(%q) should fail", s)
		}
	}
}

func TestParseToggleState(t *testing.T) {
	tests := map[string]bool{"ON": true, "on": true, " Off ": false}
	for in, want := range tests {
		got, err := ParseToggleState(in)
		if err != nil || got != want {
			t.Errorf("ParseToggleState(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseToggleState("maybe"); err == nil {
		t.Error("expected error")
	}
}

func TestTruthy(t *testing.T) {
	for _, s := range []string{"true", "YES", "1"} {
		if !Truthy(s) {
			t.Errorf("Truthy(%q) = false", s)
		}
	}
	for _, s := range []string{"false", "no", "0", "checked"} {
		if Truthy(s) {
			t.Errorf("Truthy(%q) = true", s)
		}
	}
}

func TestPaginationState_Phase(t *testing.T) {
	tests := []struct {
		state PaginationState
		want  PagePhase
	}{
		{PaginationState{}, OnlyPage},
		{PaginationState{HasNext: true}, FirstPage},
		{PaginationState{HasNext: true, HasPrev: true}, MiddlePage},
		{PaginationState{HasPrev: true}, LastPage},
	}
	for _, tt := range tests {
		if got := tt.state.Phase(); got != tt.want {
			t.Errorf("%+v.Phase() = %s, want %s", tt.state, got, tt.want)
		}
	}
}
