package entity

import "math/big"

// MaxSlotsPerSide is the number of hidden slots a member may open on each side.
const MaxSlotsPerSide = 3

// HiddenSlotSchedule is the tier price list plus per-side occupancy.
type HiddenSlotSchedule struct {
	Tiers         [MaxSlotsPerSide]*big.Int `json:"tiers"`
	LeftOccupied  uint64                    `json:"leftOccupied"`
	RightOccupied uint64                    `json:"rightOccupied"`
}

// Occupancy returns the number of hidden slots already opened on side.
func (s HiddenSlotSchedule) Occupancy(side Side) uint64 {
	if side == SideLeft {
		return s.LeftOccupied
	}
	return s.RightOccupied
}

// PriceForNextSlot returns the tier price of the next slot on side.
// A full side is an error, never clamped to the last tier.
func (s HiddenSlotSchedule) PriceForNextSlot(side Side) (*big.Int, error) {
	occupied := s.Occupancy(side)
	if occupied >= MaxSlotsPerSide {
		return nil, NewError(KindSideCapacityExceeded, "maximum hidden wallets reached for the %s side", side)
	}
	price := s.Tiers[occupied]
	if price == nil {
		return nil, NewError(KindRemoteCallFailed, "tier %d amount not loaded", occupied+1)
	}
	return new(big.Int).Set(price), nil
}

// TierAmount returns the amount of the 1-based tier.
func (s HiddenSlotSchedule) TierAmount(tier int) (*big.Int, bool) {
	if tier < 1 || tier > MaxSlotsPerSide || s.Tiers[tier-1] == nil {
		return nil, false
	}
	return new(big.Int).Set(s.Tiers[tier-1]), true
}

// ActivationWindow tells whether hidden-slot actions are allowed yet.
type ActivationWindow struct {
	ReadyNow         bool   `json:"readyNow"`
	RemainingSeconds uint64 `json:"remainingSeconds"`
	ActivatesAt      uint64 `json:"activatesAt"`
	Countdown        string `json:"countdown,omitempty"`
}

// HiddenSlotRecord is a hidden child listed under a member.
type HiddenSlotRecord struct {
	Index         uint64 `json:"index"`
	Address       string `json:"address"`
	Side          Side   `json:"side"`
	JoinedAtEpoch uint64 `json:"joinedAtEpoch"`
}

// HiddenSlotView is everything the slot manager loads for a member.
type HiddenSlotView struct {
	MemberIndex uint64             `json:"memberIndex"`
	Schedule    HiddenSlotSchedule `json:"schedule"`
	Activation  ActivationWindow   `json:"activation"`
	Slots       []HiddenSlotRecord `json:"slots"`
	Degraded    []DegradedField    `json:"degraded,omitempty"`
}

// FeeBreakdown splits a tier amount for display. Never used for authorization.
type FeeBreakdown struct {
	MonthlyReward          *big.Int `json:"monthlyReward"`
	AdminFee               *big.Int `json:"adminFee"`
	Remaining              *big.Int `json:"remaining"`
	Total                  *big.Int `json:"total"`
	MonthlyRewardFormatted string   `json:"monthlyRewardFormatted"`
	AdminFeeFormatted      string   `json:"adminFeeFormatted"`
	RemainingFormatted     string   `json:"remainingFormatted"`
	TotalFormatted         string   `json:"totalFormatted"`
}
