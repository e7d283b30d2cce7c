package numbering

import (
	"testing"

	"github.com/okian/evalharvest/internal/domain/model"
)

func TestNumberer(t *testing.T) {
	n := New()
	rows := []model.EvaluationRecord{
		{Author: "a", Model: "m1", Prompt: "p1"},
		{Author: "a", Model: "m1", Prompt: "p2"},
		{Author: "b", Model: "m1", Prompt: "p1"},
		{Author: "a", Model: "m2", Prompt: "p3"},
	}
	want := [][2]int{{1, 1}, {2, 1}, {1, 2}, {3, 3}}

	for i := range rows {
		d, am := n.Number(&rows[i])
		if d != want[i][0] || am != want[i][1] {
			t.Fatalf("row %d: got (%d, %d), want %v", i, d, am, want[i])
		}
	}
	if n.Documents() != 3 || n.Pairs() != 3 {
		t.Fatalf("got %d documents and %d pairs", n.Documents(), n.Pairs())
	}
	if id := n.Document("p2"); id != 2 {
		t.Fatalf("repeat lookup changed id: %d", id)
	}
}
