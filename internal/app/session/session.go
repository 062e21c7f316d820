package session

import (
	"fmt"
	"strings"

	"vest_orchestrator/internal/app/port"
	"vest_orchestrator/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
)

// Session is one account on one chain. It is passed explicitly into every
// engine call; nothing about the active network or account is global.
type Session struct {
	ID         string
	Descriptor entity.NetworkDescriptor
	Account    common.Address
	Chain      port.ChainBackend
	Signer     port.Signer
	// Membership and Token are nil when the contract could not be resolved
	// or did not answer its probe.
	Membership port.MembershipContract
	Token      port.TokenContract
	State      *State
}

// NewSession assembles a session from already-bound collaborators.
func NewSession(desc entity.NetworkDescriptor, account common.Address, chain port.ChainBackend, signer port.Signer, membership port.MembershipContract, token port.TokenContract) *Session {
	return &Session{
		ID:         fmt.Sprintf("%d:%s", desc.ChainID, strings.ToLower(account.Hex())),
		Descriptor: desc,
		Account:    account,
		Chain:      chain,
		Signer:     signer,
		Membership: membership,
		Token:      token,
		State:      &State{},
	}
}

// RequireAccount fails with NotConnected when no account or endpoint is bound.
func (s *Session) RequireAccount() error {
	if s == nil || s.Chain == nil {
		return entity.NewError(entity.KindNotConnected, "no active session")
	}
	if s.Account == (common.Address{}) {
		return entity.NewError(entity.KindNotConnected, "no active account")
	}
	return nil
}

// RequireMembership fails with NetworkUnresolved when the membership
// contract is not available on the active chain.
func (s *Session) RequireMembership() error {
	if s.Membership == nil {
		return entity.NewError(entity.KindNetworkUnresolved, "membership contract not resolved for chain %d", s.Descriptor.ChainID)
	}
	return nil
}

// RequireContracts checks that both contracts are bound.
func (s *Session) RequireContracts() error {
	if err := s.RequireMembership(); err != nil {
		return err
	}
	if s.Token == nil {
		return entity.NewError(entity.KindNetworkUnresolved, "token contract not resolved for chain %d", s.Descriptor.ChainID)
	}
	return nil
}

// Addresses is what the session emits to the presentation layer.
type Addresses struct {
	Membership string `json:"membership,omitempty"`
	Token      string `json:"token,omitempty"`
}

func (s *Session) Addresses() Addresses {
	var a Addresses
	if s.Membership != nil {
		a.Membership = s.Membership.Address().Hex()
	}
	if s.Token != nil {
		a.Token = s.Token.Address().Hex()
	}
	return a
}
