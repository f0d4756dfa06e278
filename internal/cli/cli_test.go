package cli

import (
	"testing"

	"github.com/ppiankov/deskbridge/internal/model"
)

func TestParseAction(t *testing.T) {
	cases := []struct {
		reply string
		want  model.Action
	}{
		{"MOVE 100 200", model.Move(100, 200)},
		{"click 5 7", model.Click(5, 7)},
		{"TYPE hello world", model.Type("hello world")},
		{"WAIT 250", model.Wait(250)},
		{"  MOVE 1 2  ", model.Move(1, 2)},
	}
	for _, tc := range cases {
		t.Run(tc.reply, func(t *testing.T) {
			got, err := parseAction(tc.reply)
			if err != nil {
				t.Fatalf("parseAction(%q): %v", tc.reply, err)
			}
			if got != tc.want {
				t.Errorf("parseAction(%q) = %+v, want %+v", tc.reply, got, tc.want)
			}
		})
	}
}

func TestParseActionRejectsGarbage(t *testing.T) {
	for _, reply := range []string{"", "SCROLL 1 2", "MOVE one two", "CLICK 5", "WAIT soon"} {
		if _, err := parseAction(reply); err == nil {
			t.Errorf("parseAction(%q) accepted", reply)
		}
	}
}

func TestBuildAction(t *testing.T) {
	a, err := buildAction("click", 3, 4, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if a.Kind != model.ActionClick || a.X != 3 || a.Y != 4 {
		t.Errorf("buildAction click = %+v", a)
	}

	if _, err := buildAction("type", 0, 0, "", 0); err == nil {
		t.Error("type without text accepted")
	}
	if _, err := buildAction("hover", 0, 0, "", 0); err == nil {
		t.Error("unknown kind accepted")
	}
}
