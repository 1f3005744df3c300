package main

import "testing"

func TestOfferLatestReplacesPendingToken(t *testing.T) {
	tokens := make(chan string, 1)

	offerLatest(tokens, "old")
	offerLatest(tokens, "new")

	if got := <-tokens; got != "new" {
		t.Errorf("expected newest token, got %q", got)
	}
	select {
	case extra := <-tokens:
		t.Errorf("expected a single pending token, got extra %q", extra)
	default:
	}
}

func TestOfferLatestOnEmptyChannel(t *testing.T) {
	tokens := make(chan string, 1)

	offerLatest(tokens, "only")

	if got := <-tokens; got != "only" {
		t.Errorf("expected only, got %q", got)
	}
}
