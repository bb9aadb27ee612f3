package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"throp/internal/platform"
	"throp/pkg/logging"
)

type stubUserSearcher struct {
	users []platform.User
	err   error
	query string
}

func (s *stubUserSearcher) SearchUsers(_ context.Context, q string, _ int) ([]platform.User, error) {
	s.query = q
	return s.users, s.err
}

func TestProfileLookupSingleMatch(t *testing.T) {
	searcher := &stubUserSearcher{users: []platform.User{
		{ID: "1", Handle: "vitalik", Name: "Vitalik Buterin", Bio: "ethereum person", Followers: 5000000, Verified: true},
	}}
	tool := NewProfileLookup(searcher, logging.NewTestLogger())

	res := tool.Search(context.Background(), "who is vitalik buterin")
	if searcher.query != "vitalik buterin" {
		t.Errorf("subject = %q, want boilerplate stripped", searcher.query)
	}
	if len(res.Candidates) != 0 {
		t.Errorf("unexpected candidates: %v", res.Candidates)
	}
	if len(res.Facts) == 0 || !strings.Contains(res.Facts[0], "@vitalik") {
		t.Errorf("facts = %v", res.Facts)
	}
	if len(res.Sources) != 1 || res.Sources[0] != "https://x.com/vitalik" {
		t.Errorf("sources = %v", res.Sources)
	}
}

func TestProfileLookupHandleWinsOverPhrase(t *testing.T) {
	searcher := &stubUserSearcher{users: []platform.User{{ID: "1", Handle: "somebody", Name: "Some Body"}}}
	tool := NewProfileLookup(searcher, logging.NewTestLogger())

	tool.Search(context.Background(), "tell me about @somebody, are they legit?")
	if searcher.query != "somebody" {
		t.Errorf("subject = %q, want the bare handle", searcher.query)
	}
}

func TestProfileLookupAmbiguousNamesBecomeCandidates(t *testing.T) {
	searcher := &stubUserSearcher{users: []platform.User{
		{ID: "1", Handle: "alice_dev", Name: "Alice Smith", Followers: 12000, Verified: true},
		{ID: "2", Handle: "alice_art", Name: "Alice Smith", Followers: 900},
		{ID: "3", Handle: "unrelated", Name: "Someone Else", Followers: 50},
	}}
	tool := NewProfileLookup(searcher, logging.NewTestLogger())

	res := tool.Search(context.Background(), "who is alice smith")
	if len(res.Candidates) != 2 {
		t.Fatalf("candidates = %v, want the two identically-named profiles", res.Candidates)
	}
	if res.Candidates[0].Name != "@alice_dev" {
		t.Errorf("first candidate = %+v, want highest-follower account first", res.Candidates[0])
	}
	if len(res.Facts) != 0 {
		t.Errorf("ambiguous lookup produced facts: %v", res.Facts)
	}
}

func TestProfileLookupSwallowsErrors(t *testing.T) {
	searcher := &stubUserSearcher{err: errors.New("boom")}
	tool := NewProfileLookup(searcher, logging.NewTestLogger())

	if res := tool.Search(context.Background(), "who is anyone"); !res.Empty() {
		t.Errorf("result = %+v, want empty", res)
	}
}

func TestProfileLookupNoMatches(t *testing.T) {
	searcher := &stubUserSearcher{}
	tool := NewProfileLookup(searcher, logging.NewTestLogger())

	if res := tool.Search(context.Background(), "who is nobodyatall"); !res.Empty() {
		t.Errorf("result = %+v, want empty", res)
	}
}
