package pregel

import "testing"

func TestUnpackExplicitListFlattensRecipients(t *testing.T) {
	envelopes := []*Envelope[string, string]{
		{Payload: "x", Sender: "v0", SomeRecipients: []string{"v3", "v7"}, Channel: 1},
		{Payload: "x", Sender: "v0", SomeRecipients: []string{"v9"}, Channel: 2},
	}

	got := unpackExplicitList(envelopes)
	if len(got) != 3 {
		t.Fatalf("unpackExplicitList returned %d messages, want 3", len(got))
	}

	seen := map[string]bool{}
	for _, m := range got {
		if m.Payload != "x" {
			t.Fatalf("payload = %q, want %q", m.Payload, "x")
		}
		seen[m.Recipient] = true
	}
	for _, want := range []string{"v3", "v7", "v9"} {
		if !seen[want] {
			t.Fatalf("missing recipient %q in unpacked messages", want)
		}
	}
}

func TestUnpackBroadcastExpandsAgainstLocalAdjacency(t *testing.T) {
	localEdges := []Edge[string, float64]{
		{Source: "v0", Target: "n1"},
		{Source: "v0", Target: "n2"},
		{Source: "v1", Target: "n3"},
	}
	adj := buildBroadcastAdjacency(localEdges)

	envelopes := []*Envelope[string, string]{
		{Payload: "p", Sender: "v0", Channel: 0},
	}

	got := unpackBroadcast(adj, envelopes)
	if len(got) != 2 {
		t.Fatalf("unpackBroadcast returned %d messages, want 2", len(got))
	}
	recipients := map[string]bool{}
	for _, m := range got {
		recipients[m.Recipient] = true
	}
	if !recipients["n1"] || !recipients["n2"] {
		t.Fatalf("recipients = %v, want {n1, n2}", recipients)
	}
}

func TestUnpackBroadcastNoOutNeighboursEmitsNothing(t *testing.T) {
	adj := buildBroadcastAdjacency[string, float64](nil)
	envelopes := []*Envelope[string, string]{
		{Payload: "p", Sender: "ghost", Channel: 0},
	}

	got := unpackBroadcast(adj, envelopes)
	if len(got) != 0 {
		t.Fatalf("unpackBroadcast returned %d messages, want 0 for a sender with no local out-neighbours", len(got))
	}
}

func TestEnvelopeIsBroadcast(t *testing.T) {
	broadcast := &Envelope[string, int]{SomeRecipients: nil}
	explicit := &Envelope[string, int]{SomeRecipients: []string{"a"}}

	if !broadcast.IsBroadcast() {
		t.Fatalf("envelope with no recipients should be a broadcast envelope")
	}
	if explicit.IsBroadcast() {
		t.Fatalf("envelope with recipients should not be a broadcast envelope")
	}
}
