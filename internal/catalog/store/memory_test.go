package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"docgate/internal/catalog"
	dErrors "docgate/pkg/domain-errors"
)

type MemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *Memory
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	docs, products := catalog.Seed()
	s.store = NewMemory(docs, products)
}

func (s *MemoryStoreSuite) TestSnapshotHoldsActiveVersionsOnly() {
	snap, err := s.store.Snapshot(s.ctx)
	s.Require().NoError(err)

	s.Len(snap.Documents, 4)
	s.Len(snap.Products, 2)

	idDoc, ok := snap.Document("ID")
	s.Require().True(ok)
	s.True(idDoc.Active)
	s.Equal("dt-id-v1", idDoc.ID)

	_, ok = snap.Product("CC001")
	s.True(ok)
}

func (s *MemoryStoreSuite) TestAddDocumentVersionSupersedesActive() {
	v2 := catalog.DocumentType{
		ID:          "dt-id-v2",
		Code:        "ID",
		Name:        "National ID",
		VersionDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Active:      true,
		Rules: []catalog.ValidationRule{
			{ID: "r-id-name", Name: "Name extracted", Kind: catalog.RuleFieldPresent, Field: "name", Enabled: true, Required: true},
		},
	}
	s.Require().NoError(s.store.AddDocumentVersion(s.ctx, v2))

	snap, err := s.store.Snapshot(s.ctx)
	s.Require().NoError(err)
	idDoc, ok := snap.Document("ID")
	s.Require().True(ok)
	s.Equal("dt-id-v2", idDoc.ID)

	all, err := s.store.ListDocumentTypes(s.ctx)
	s.Require().NoError(err)
	var inactive int
	for _, d := range all {
		if d.Code == "ID" && !d.Active {
			inactive++
		}
	}
	s.Equal(1, inactive, "the old version stays, deactivated")

	err = s.store.AddDocumentVersion(s.ctx, v2)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *MemoryStoreSuite) TestRuleToggles() {
	s.Run("document rule enabled", func() {
		s.Require().NoError(s.store.SetDocumentRuleEnabled(s.ctx, "ID", "r-id-number", false))
		snap, err := s.store.Snapshot(s.ctx)
		s.Require().NoError(err)
		rule, ok := snap.Documents["ID"].Rule("r-id-number")
		s.Require().True(ok)
		s.False(rule.Enabled)
		s.True(rule.Required, "required flag untouched")
	})

	s.Run("document rule required", func() {
		s.Require().NoError(s.store.SetDocumentRuleRequired(s.ctx, "ID", "r-id-issue-fresh", true))
		snap, err := s.store.Snapshot(s.ctx)
		s.Require().NoError(err)
		rule, ok := snap.Documents["ID"].Rule("r-id-issue-fresh")
		s.Require().True(ok)
		s.True(rule.Required)
	})

	s.Run("product rule enabled", func() {
		s.Require().NoError(s.store.SetProductRuleEnabled(s.ctx, "CC001", "x-cc-employer", false))
		snap, err := s.store.Snapshot(s.ctx)
		s.Require().NoError(err)
		var found bool
		for _, r := range snap.Products["CC001"].CrossRules {
			if r.ID == "x-cc-employer" {
				found = true
				s.False(r.Enabled)
			}
		}
		s.True(found)
	})

	s.Run("unknown rule", func() {
		err := s.store.SetDocumentRuleEnabled(s.ctx, "ID", "r-nope", true)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unknown document type", func() {
		err := s.store.SetDocumentRuleEnabled(s.ctx, "PASSPORT", "r-id-number", true)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unknown product", func() {
		err := s.store.SetProductRuleRequired(s.ctx, "CC999", "x-cc-name", true)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *MemoryStoreSuite) TestActiveToggles() {
	s.Run("retiring a document version removes it from the snapshot", func() {
		s.Require().NoError(s.store.SetDocumentTypeActive(s.ctx, "dt-id-v1", false))
		snap, err := s.store.Snapshot(s.ctx)
		s.Require().NoError(err)
		_, ok := snap.Document("ID")
		s.False(ok)
	})

	s.Run("reactivating supersedes sibling versions", func() {
		v2 := catalog.DocumentType{
			ID: "dt-id-v2", Code: "ID", Name: "National ID", Active: true,
			VersionDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		}
		s.Require().NoError(s.store.AddDocumentVersion(s.ctx, v2))
		s.Require().NoError(s.store.SetDocumentTypeActive(s.ctx, "dt-id-v1", true))

		all, err := s.store.ListDocumentTypes(s.ctx)
		s.Require().NoError(err)
		for _, d := range all {
			if d.Code != "ID" {
				continue
			}
			s.Equal(d.ID == "dt-id-v1", d.Active)
		}
	})

	s.Run("closing a product hides it from intake", func() {
		s.Require().NoError(s.store.SetProductActive(s.ctx, "CC001", false))
		snap, err := s.store.Snapshot(s.ctx)
		s.Require().NoError(err)
		_, ok := snap.Product("CC001")
		s.False(ok)

		all, err := s.store.ListProducts(s.ctx)
		s.Require().NoError(err)
		var found bool
		for _, p := range all {
			if p.Code == "CC001" {
				found = true
				s.False(p.Active)
			}
		}
		s.True(found, "closed products stay listed for the admin view")
	})

	s.Run("unknown targets", func() {
		err := s.store.SetDocumentTypeActive(s.ctx, "dt-nope", true)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		err = s.store.SetProductActive(s.ctx, "CC999", true)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *MemoryStoreSuite) TestSnapshotIsDetached() {
	snap, err := s.store.Snapshot(s.ctx)
	s.Require().NoError(err)

	doc := snap.Documents["ID"]
	doc.Rules[0].Enabled = false
	doc.Rules[0].Params["pattern"] = "changed"

	fresh, err := s.store.Snapshot(s.ctx)
	s.Require().NoError(err)
	rule, ok := fresh.Documents["ID"].Rule(doc.Rules[0].ID)
	s.Require().True(ok)
	s.True(rule.Enabled, "mutating a snapshot must not touch the store")
	s.NotEqual("changed", rule.Params["pattern"])
}
