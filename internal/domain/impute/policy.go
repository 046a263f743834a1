package impute

import (
	"github.com/okian/grantfeat/internal/domain/schema"
)

// Rule is how a missing value is replaced.
type Rule int

const (
	// RuleMean fills with the column mean before aggregation.
	RuleMean Rule = iota
	// RuleMedian fills with the column median after the join.
	RuleMedian
	// RuleZero fills with zero after the join.
	RuleZero
	// RuleMode fills with the most frequent label.
	RuleMode
	// RuleSentinel maps a missing value to a dedicated bucket.
	RuleSentinel
	// RuleExclude leaves the row out of every category of a one-hot count.
	RuleExclude
	// RulePassthrough keeps the value missing in the output.
	RulePassthrough
	// RuleReject treats a missing value as a fatal error.
	RuleReject
)

func (r Rule) String() string {
	switch r {
	case RuleMean:
		return "mean"
	case RuleMedian:
		return "median"
	case RuleZero:
		return "zero"
	case RuleMode:
		return "mode"
	case RuleSentinel:
		return "sentinel"
	case RuleExclude:
		return "exclude"
	case RulePassthrough:
		return "passthrough"
	default:
		return "reject"
	}
}

// Policy binds a column to its fill rule.
type Policy struct {
	Column string
	Rule   Rule
}

// Policies lists the fill rule of every column that feeds a feature.
func Policies() []Policy {
	out := []Policy{
		{Column: schema.ApplicationID, Rule: RuleReject},
		{Column: schema.GrantStatus, Rule: RulePassthrough},
		{Column: schema.GrantCategory, Rule: RuleSentinel},
		{Column: schema.ContractValueBand, Rule: RuleMode},
		{Column: schema.StartDate, Rule: RuleReject},
		{Column: schema.ResearcherRole, Rule: RuleExclude},
		{Column: schema.YearOfBirth, Rule: RuleMedian},
		{Column: schema.CountryOfBirth, Rule: RuleExclude},
		{Column: schema.SuccessfulGrants, Rule: RuleZero},
		{Column: schema.UnsuccessfulGrants, Rule: RuleZero},
		{Column: schema.PapersAStar, Rule: RuleZero},
		{Column: schema.PapersA, Rule: RuleZero},
		{Column: schema.PapersB, Rule: RuleZero},
		{Column: schema.PapersC, Rule: RuleZero},
	}
	for _, p := range [][2]string{
		{schema.RFCDCodePrefix, schema.RFCDPercentagePrefix},
		{schema.SEOCodePrefix, schema.SEOPercentagePrefix},
	} {
		for i := 1; i <= schema.CodeSlots; i++ {
			out = append(out,
				Policy{Column: schema.SlotColumn(p[0], i), Rule: RuleSentinel},
				Policy{Column: schema.SlotColumn(p[1], i), Rule: RuleMean},
			)
		}
	}
	return out
}

// RuleFor returns the rule of a column. ok is false when none is declared.
func RuleFor(column string) (Rule, bool) {
	for _, p := range Policies() {
		if p.Column == column {
			return p.Rule, true
		}
	}
	return RuleReject, false
}
