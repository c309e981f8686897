package models

import "fmt"

// ID is the remote identifier shared by every ID-keyed entity type.
type ID = int64

// EntityType identifies one of the cached entity collections.
type EntityType int

const (
	TypeProvider EntityType = iota + 1
	TypeProviderAccount
	TypeAccount
	TypeGoal
	TypeGoalPeriod
	TypeCard
	TypeMerchant
	TypeTransaction
	TypeTransactionCategory
	TypeUserTag
)

var entityTypeNames = map[EntityType]string{
	TypeProvider:            "provider",
	TypeProviderAccount:     "provider_account",
	TypeAccount:             "account",
	TypeGoal:                "goal",
	TypeGoalPeriod:          "goal_period",
	TypeCard:                "card",
	TypeMerchant:            "merchant",
	TypeTransaction:         "transaction",
	TypeTransactionCategory: "transaction_category",
	TypeUserTag:             "user_tag",
}

func (t EntityType) String() string {
	if name, ok := entityTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("entity_type(%d)", int(t))
}

// ParseEntityType maps a name produced by String back to its EntityType.
func ParseEntityType(s string) (EntityType, error) {
	for t, name := range entityTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown entity type %q", s)
}

// UniqueIDs returns ids without duplicates, keeping first occurrences in order.
// Zero IDs are dropped since they never identify a remote entity.
func UniqueIDs(ids []ID) []ID {
	seen := make(map[ID]struct{}, len(ids))
	out := make([]ID, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
