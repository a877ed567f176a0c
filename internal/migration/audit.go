package migration

import (
	"context"
	"fmt"
	"sort"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/domain"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/repository"
	"gorm.io/gorm"
)

const auditBatchSize = 500

// PairIssue is a friend pair whose two records disagree
type PairIssue struct {
	AID      string
	BID      string
	Resolved domain.PairState // conservative state both records will be moved to
	Dangling bool             // BID has no account record
}

// AuditPairs scans every account and reports pairs that are not mirrored on
// both sides. Results are ordered by (AID, BID).
func AuditPairs(ctx context.Context, db *gorm.DB) ([]PairIssue, error) {
	byID := make(map[string]*domain.Account)
	var batch []*domain.Account
	err := db.WithContext(ctx).Order("id").FindInBatches(&batch, auditBatchSize, func(_ *gorm.DB, _ int) error {
		for _, a := range batch {
			byID[a.ID] = a
		}
		return nil
	}).Error
	if err != nil {
		return nil, fmt.Errorf("scan accounts: %w", err)
	}

	seen := make(map[[2]string]bool)
	var issues []PairIssue
	for _, a := range byID {
		for _, otherID := range referencedIDs(a) {
			if otherID == a.ID {
				continue
			}
			key := [2]string{a.ID, otherID}
			if otherID < a.ID {
				key = [2]string{otherID, a.ID}
			}
			if seen[key] {
				continue
			}
			seen[key] = true

			if _, ok := byID[otherID]; !ok {
				issues = append(issues, PairIssue{AID: a.ID, BID: otherID, Resolved: domain.PairNone, Dangling: true})
				continue
			}
			first, second := byID[key[0]], byID[key[1]]
			if state, consistent := domain.ResolvePair(first, second); !consistent {
				issues = append(issues, PairIssue{AID: first.ID, BID: second.ID, Resolved: state})
			}
		}
	}

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].AID != issues[j].AID {
			return issues[i].AID < issues[j].AID
		}
		return issues[i].BID < issues[j].BID
	})
	return issues, nil
}

// RepairPairs moves every reported pair to its resolved state. It stops at
// the first failed write; already repaired pairs stay repaired.
func RepairPairs(ctx context.Context, accounts repository.AccountRepository, issues []PairIssue) (int, error) {
	repaired := 0
	for _, issue := range issues {
		updates := domain.PairUpdatesFor(issue.AID, issue.BID, issue.Resolved)
		if _, err := accounts.Apply(ctx, issue.AID, updates.A); err != nil {
			return repaired, fmt.Errorf("repair %s/%s: %w", issue.AID, issue.BID, err)
		}
		if !issue.Dangling {
			if _, err := accounts.Apply(ctx, issue.BID, updates.B); err != nil {
				return repaired, fmt.Errorf("repair %s/%s: %w", issue.AID, issue.BID, err)
			}
		}
		repaired++
	}
	return repaired, nil
}

func referencedIDs(a *domain.Account) []string {
	ids := make([]string, 0, len(a.Friends)+len(a.SentRequests)+len(a.ReceivedRequests))
	ids = append(ids, a.Friends...)
	ids = append(ids, a.SentRequests...)
	ids = append(ids, a.ReceivedRequests...)
	return ids
}
