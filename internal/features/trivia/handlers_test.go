package trivia

import (
	"strings"
	"testing"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/questions"
)

func TestAnswerDataRoundTrip(t *testing.T) {
	sid := "6f1c9a52-8a4e-4b7e-9d1b-3c0f2e5a7b10"
	data := AnswerData(sid, 4, 2)
	if len(data) > 64 {
		t.Fatalf("callback data is %d bytes, Telegram allows 64", len(data))
	}
	gotSID, index, option, ok := ParseAnswerData(data)
	if !ok || gotSID != sid || index != 4 || option != 2 {
		t.Fatalf("got %q %d %d %v", gotSID, index, option, ok)
	}
	if !IsAnswerData(data) {
		t.Fatal("expected answer data to be recognised")
	}
}

func TestParseAnswerDataRejectsGarbage(t *testing.T) {
	for _, data := range []string{
		"",
		"ans",
		"ans::1:1",
		"ans:sid:x:1",
		"ans:sid:1:-1",
		"ans:sid:1:1:extra",
		"adm:sid:1:1",
	} {
		if _, _, _, ok := ParseAnswerData(data); ok {
			t.Fatalf("expected %q to be rejected", data)
		}
	}
}

func TestFormatAnswer(t *testing.T) {
	q := questions.Public{Options: []string{"sats", "bits"}}

	got := FormatAnswer(&AnswerResult{Correct: true, SatsEarned: 21, Streak: 3}, q)
	if !strings.Contains(got, "+21 sats") || !strings.Contains(got, "3 in a row") {
		t.Fatalf("unexpected correct text %q", got)
	}

	got = FormatAnswer(&AnswerResult{CorrectOption: 0, Explanation: "1 BTC = 100,000,000 sats"}, q)
	if !strings.Contains(got, "the answer was: sats") || !strings.Contains(got, "💡") {
		t.Fatalf("unexpected wrong text %q", got)
	}
}

func TestFormatProgress(t *testing.T) {
	got := FormatProgress(&Progress{CurrentLevel: 3, LevelCompleted: true, CorrectCount: 1500, SatsEarned: 2100}, 3)
	if !strings.Contains(got, "All 3 levels complete") || !strings.Contains(got, "1,500") || !strings.Contains(got, "2,100 sats") {
		t.Fatalf("unexpected progress text %q", got)
	}

	got = FormatProgress(NewProgress(1), 3)
	if !strings.Contains(got, "Level 1 of 3") {
		t.Fatalf("unexpected progress text %q", got)
	}
}
