package entity

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// TokenDecimals is the number of decimals of the payment token (USDT-style).
const TokenDecimals uint8 = 6

// Side is the subtree placement of a member relative to its referrer.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

// String returns "Left" or "Right".
func (s Side) String() string {
	if s == SideLeft {
		return "Left"
	}
	return "Right"
}

// IsLeft reports whether the side is the left subtree.
func (s Side) IsLeft() bool { return s == SideLeft }

// MarshalText encodes the side as its display label.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts "left"/"right" in any case.
func (s *Side) UnmarshalText(text []byte) error {
	parsed, err := ParseSide(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSide parses a side label.
func ParseSide(v string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "left", "l":
		return SideLeft, nil
	case "right", "r":
		return SideRight, nil
	}
	return SideLeft, fmt.Errorf("unknown side %q", v)
}

// SideFromIsLeft converts the contract's boolean placement flag.
func SideFromIsLeft(isLeft bool) Side {
	if isLeft {
		return SideLeft
	}
	return SideRight
}

// Position is the on-chain position record of a tree index.
type Position struct {
	IsLeft        bool   `json:"isLeft"`
	Name          string `json:"name"`
	Hidden        bool   `json:"hidden"`
	Wallet        string `json:"wallet"`
	JoinedAtEpoch uint64 `json:"joinedAtEpoch"`
}

// MembershipRecord is the caller's membership as last read from chain.
type MembershipRecord struct {
	Registered             bool     `json:"registered"`
	TreeIndex              uint64   `json:"treeIndex"`
	Side                   Side     `json:"side"`
	DisplayName            string   `json:"displayName"`
	TreeBalance            *big.Int `json:"treeBalance"`
	TokenBalance           *big.Int `json:"tokenBalance"`
	TokenBalanceFormatted  string   `json:"tokenBalanceFormatted"`
	TotalReceived          *big.Int `json:"totalReceived"`
	TotalReceivedFormatted string   `json:"totalReceivedFormatted"`
	LeftSubtreeCount       uint64   `json:"leftSubtreeCount"`
	RightSubtreeCount      uint64   `json:"rightSubtreeCount"`
	JoinedAtEpoch          uint64   `json:"joinedAtEpoch"`
	// Complete is false when the detail batch failed and only the index is fresh.
	Complete bool `json:"complete"`
}

// GlobalStats is the contract-wide state.
type GlobalStats struct {
	TotalMembers            uint64   `json:"totalMembers"`
	Paused                  bool     `json:"paused"`
	PendingOperationCount   uint64   `json:"pendingOperationCount"`
	TotalLiquidity          *big.Int `json:"totalLiquidity"`
	TotalLiquidityFormatted string   `json:"totalLiquidityFormatted"`
}

// EntryPricing is the cost of joining the network.
// GrossAmount and AdminFeeAmount are authoritative minor-unit values; the
// decimal strings are for display only.
type EntryPricing struct {
	GrossAmount        *big.Int `json:"grossAmount"`
	AdminFeeAmount     *big.Int `json:"adminFeeAmount"`
	NetLiquidityAmount string   `json:"netLiquidityAmount"`
	GrossAmountDecimal string   `json:"grossAmountDecimal"`
	Loaded             bool     `json:"loaded"`
}

// DegradedField names a snapshot field that fell back to a default or a previous value.
type DegradedField string

const (
	DegradedPendingOperations DegradedField = "pendingOperations"
	DegradedLiquidity         DegradedField = "totalLiquidity"
	DegradedMemberRecord      DegradedField = "memberRecord"
	DegradedEntryPricing      DegradedField = "entryPricing"
	DegradedHiddenSlotList    DegradedField = "hiddenSlotList"
)

// Snapshot is the assembled local view of the contract for one account.
type Snapshot struct {
	Account  string            `json:"account"`
	ChainID  uint64            `json:"chainId"`
	Stats    GlobalStats       `json:"stats"`
	Member   *MembershipRecord `json:"member,omitempty"`
	Pricing  EntryPricing      `json:"pricing"`
	Degraded []DegradedField   `json:"degraded,omitempty"`
	SyncedAt time.Time         `json:"syncedAt"`
}

// Registered reports whether the account has a non-zero tree index.
func (s Snapshot) Registered() bool {
	return s.Member != nil && s.Member.Registered && s.Member.TreeIndex > 0
}

// DegradedErr returns a PartialSyncDegraded error when any field was defaulted.
func (s Snapshot) DegradedErr() error {
	if len(s.Degraded) == 0 {
		return nil
	}
	names := make([]string, len(s.Degraded))
	for i, d := range s.Degraded {
		names[i] = string(d)
	}
	return NewError(KindPartialSyncDegraded, "degraded fields: %s", strings.Join(names, ", "))
}
