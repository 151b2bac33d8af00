package domain

type Tier int

const (
	TierAnonymous Tier = iota
	TierOperator
)

func (t Tier) String() string {
	if t == TierOperator {
		return "operator"
	}
	return "anonymous"
}

// Principal is the authorized caller of a request.
// IdentityID is zero for an anonymous caller that has not been resolved yet, and for operators.
type Principal struct {
	Tier       Tier
	IdentityID uint64
}

func (p Principal) IsOperator() bool {
	return p.Tier == TierOperator
}
