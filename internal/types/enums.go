package types

// Outcome represents the recorded result of a single attempt
type Outcome string

const (
	// OutcomeSuccess indicates the command exited zero and passed verification
	OutcomeSuccess Outcome = "success"
	// OutcomeFailure indicates the command failed outright
	OutcomeFailure Outcome = "failure"
	// OutcomeVerifyFailed indicates the install succeeded but post-checks failed
	OutcomeVerifyFailed Outcome = "verification-failure"
)

// IsValid checks if an outcome value is valid
func (o Outcome) IsValid() bool {
	for _, valid := range AllOutcomes() {
		if o == valid {
			return true
		}
	}
	return false
}

// AllOutcomes returns all valid outcome values
func AllOutcomes() []Outcome {
	return []Outcome{OutcomeSuccess, OutcomeFailure, OutcomeVerifyFailed}
}

// String returns the string representation of the outcome
func (o Outcome) String() string {
	return string(o)
}

// IssuedBy identifies which part of the system proposed a command
type IssuedBy string

const (
	// IssuedBySelf marks commands derived directly from user input or static rules
	IssuedBySelf IssuedBy = "self"
	// IssuedByOracle marks commands proposed by the reasoning oracle
	IssuedByOracle IssuedBy = "oracle"
	// IssuedByWebSearch marks commands proposed by a web-search consultation
	IssuedByWebSearch IssuedBy = "web-search"
)

// IsValid checks if an issuer value is valid
func (i IssuedBy) IsValid() bool {
	for _, valid := range AllIssuers() {
		if i == valid {
			return true
		}
	}
	return false
}

// AllIssuers returns all valid issuer values
func AllIssuers() []IssuedBy {
	return []IssuedBy{IssuedBySelf, IssuedByOracle, IssuedByWebSearch}
}

// String returns the string representation of the issuer
func (i IssuedBy) String() string {
	return string(i)
}

// Tier is a priority class of remediation strategies, ascending in
// invasiveness. Lower tiers are always exhausted before higher ones.
type Tier int

const (
	// TierStatic covers version pin adjustments from initial analysis or static rules
	TierStatic Tier = 1
	// TierWebVerified covers solutions backed by a web-search source reference
	TierWebVerified Tier = 2
	// TierAlternative covers package substitution and environment-level changes
	TierAlternative Tier = 3
	// TierSystem covers deep system or build-chain fixes
	TierSystem Tier = 4
)

// IsValid checks if a tier value is valid
func (t Tier) IsValid() bool {
	return t >= TierStatic && t <= TierSystem
}

// AllTiers returns all valid tiers in ascending order
func AllTiers() []Tier {
	return []Tier{TierStatic, TierWebVerified, TierAlternative, TierSystem}
}

// Confidence expresses how much trust a solution's source places in it
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// IsValid checks if a confidence value is valid
func (c Confidence) IsValid() bool {
	for _, valid := range AllConfidences() {
		if c == valid {
			return true
		}
	}
	return false
}

// AllConfidences returns all valid confidence values
func AllConfidences() []Confidence {
	return []Confidence{ConfidenceHigh, ConfidenceMedium, ConfidenceLow}
}

// Rank returns a sortable weight, higher means more confident.
// Unknown values rank below low so malformed oracle output sinks.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// String returns the string representation of the confidence
func (c Confidence) String() string {
	return string(c)
}

// Status represents the lifecycle of a resolution run.
// Terminal once it leaves StatusRunning.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSolved    Status = "solved"
	StatusExhausted Status = "exhausted"
)

// IsValid checks if a status value is valid
func (s Status) IsValid() bool {
	for _, valid := range AllStatuses() {
		if s == valid {
			return true
		}
	}
	return false
}

// AllStatuses returns all valid status values
func AllStatuses() []Status {
	return []Status{StatusRunning, StatusSolved, StatusExhausted}
}

// IsTerminal reports whether the status ends the run
func (s Status) IsTerminal() bool {
	return s == StatusSolved || s == StatusExhausted
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// ExhaustionReason explains why a run ended without a solution
type ExhaustionReason string

const (
	// ReasonNone is set while the run is live or ended solved
	ReasonNone ExhaustionReason = ""
	// ReasonTierExhausted means every tier ran out of candidates
	ReasonTierExhausted ExhaustionReason = "tier-exhausted"
	// ReasonBudgetExhausted means the oracle consultation budget was spent
	ReasonBudgetExhausted ExhaustionReason = "consultation-budget-exhausted"
	// ReasonDeclaredImpossible means no candidate remains at any tier,
	// or the oracle itself declared the conflict unresolvable
	ReasonDeclaredImpossible ExhaustionReason = "declared-impossible"
)

// IsValid checks if an exhaustion reason is valid
func (r ExhaustionReason) IsValid() bool {
	switch r {
	case ReasonNone, ReasonTierExhausted, ReasonBudgetExhausted, ReasonDeclaredImpossible:
		return true
	}
	return false
}

// String returns the string representation of the reason
func (r ExhaustionReason) String() string {
	return string(r)
}

// AnalysisMode selects the depth of an oracle analysis
type AnalysisMode string

const (
	// ModeBasic analyzes command output alone
	ModeBasic AnalysisMode = "basic"
	// ModeEnhanced adds environment diagnostics to the analysis
	ModeEnhanced AnalysisMode = "enhanced"
)

// IsValid checks if an analysis mode is valid
func (m AnalysisMode) IsValid() bool {
	return m == ModeBasic || m == ModeEnhanced
}

// String returns the string representation of the mode
func (m AnalysisMode) String() string {
	return string(m)
}
