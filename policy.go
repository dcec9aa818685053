package main

import "strings"

// PolicyGate enforces optional destination and token-contract allow-lists.
// An empty list leaves that dimension unrestricted; configuring one is an
// explicit opt-in control. Matching is exact and case-sensitive, no
// checksum normalization is applied.
type PolicyGate struct {
	destinations map[string]struct{}
	contracts    map[string]struct{}
}

// NewPolicyGate builds a gate from comma-separated address lists as they
// appear in configuration. Blank entries are ignored.
func NewPolicyGate(destinationList, contractList string) *PolicyGate {
	return &PolicyGate{
		destinations: parseAddressList(destinationList),
		contracts:    parseAddressList(contractList),
	}
}

// Check verifies both dimensions and reports which one failed.
func (g *PolicyGate) Check(destination, tokenContract string) error {
	if len(g.destinations) > 0 {
		if _, ok := g.destinations[destination]; !ok {
			return GatewayErrorf(ErrKindPolicy, "destination address %s is not allow-listed", destination)
		}
	}
	if len(g.contracts) > 0 {
		if _, ok := g.contracts[tokenContract]; !ok {
			return GatewayErrorf(ErrKindPolicy, "token contract %s is not allow-listed", tokenContract)
		}
	}
	return nil
}

func parseAddressList(raw string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		set[entry] = struct{}{}
	}
	return set
}
