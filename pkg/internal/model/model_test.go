package model_test

import (
	"strings"
	"testing"

	"github.com/yeisme/docvault/pkg/internal/model"
)

func TestPermissionImplies(t *testing.T) {
	for _, perm := range model.AllPermissions {
		if !model.PermissionAdmin.Implies(perm) {
			t.Errorf("ADMIN should imply %s", perm)
		}

		if !perm.Implies(perm) {
			t.Errorf("%s should imply itself", perm)
		}
	}

	if model.PermissionWrite.Implies(model.PermissionRead) {
		t.Error("WRITE must not imply READ")
	}

	if model.PermissionShare.Implies(model.PermissionDelete) {
		t.Error("SHARE must not imply DELETE")
	}

	if model.Permission("OWNER").Valid() {
		t.Error("OWNER is not a permission")
	}
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from model.DocumentStatus
		to   model.DocumentStatus
		ok   bool
	}{
		{model.StatusDraft, model.StatusActive, true},
		{model.StatusDraft, model.StatusArchived, false},
		{model.StatusActive, model.StatusArchived, true},
		{model.StatusActive, model.StatusDeleted, true},
		{model.StatusArchived, model.StatusActive, true},
		{model.StatusArchived, model.StatusDeleted, true},
		{model.StatusDeleted, model.StatusActive, false},
		{model.StatusDeleted, model.StatusDraft, false},
	}

	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.ok {
			t.Errorf("%s -> %s = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestRebuildPath(t *testing.T) {
	doc := model.Document{Name: "a.txt", Prefix: "/docs/"}
	doc.RebuildPath()

	if doc.Path != "/docs/a.txt" {
		t.Errorf("path = %q, want /docs/a.txt", doc.Path)
	}

	doc.Prefix = ""
	doc.RebuildPath()

	if doc.Path != "/a.txt" {
		t.Errorf("root path = %q, want /a.txt", doc.Path)
	}
}

func TestTagsRoundTrip(t *testing.T) {
	var doc model.Document

	doc.SetTags([]string{"red", "big"})

	tags := doc.Tags()
	if len(tags) != 2 || tags[0] != "red" || tags[1] != "big" {
		t.Errorf("tags = %v", tags)
	}

	doc.SetTags(nil)

	if got := doc.Tags(); len(got) != 0 {
		t.Errorf("cleared tags = %v", got)
	}
}

func TestSearchIndexLowercased(t *testing.T) {
	doc := model.Document{
		Name:        "Quarterly Report",
		Description: "Q3 Financials",
		Filename:    "REPORT.PDF",
	}
	doc.SetTags([]string{"Finance"})
	doc.RebuildSearchIndex()

	for _, want := range []string{"quarterly report", "q3 financials", "report.pdf", "finance"} {
		if !strings.Contains(doc.SearchIndex, want) {
			t.Errorf("search index %q missing %q", doc.SearchIndex, want)
		}
	}
}
