package models

// Role distinguishes admin collaborators from regular players. Sessions
// carry it from the JWT claims issued by the (external) auth surface.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ContractType is the direction of a leveraged contract.
type ContractType string

const (
	ContractLong  ContractType = "LONG"
	ContractShort ContractType = "SHORT"
)

// Trend is an opaque directional tag attached to a script day. Per spec
// §9(c) the enumerator names are config, not protocol — these are the
// English aliases the spec settled on.
type Trend string

const (
	TrendStrongUp   Trend = "STRONG_UP"
	TrendUp         Trend = "UP"
	TrendFlat       Trend = "FLAT"
	TrendDown       Trend = "DOWN"
	TrendStrongDown Trend = "STRONG_DOWN"
	TrendNoEffect   Trend = "NO_EFFECT"
)

// TrendStrength maps a trend tag to the script generator's trend-ratio
// coefficient (spec §4.7).
var TrendStrength = map[Trend]float64{
	TrendStrongUp:   1.0,
	TrendUp:         0.5,
	TrendFlat:       0,
	TrendDown:       -0.5,
	TrendStrongDown: -1.0,
}

// RedEnvelopeItemType distinguishes physical prizes (display only, no
// cash movement) from cash prizes (credited on REVEAL_RESULT).
type RedEnvelopeItemType string

const (
	RedEnvelopePhysical RedEnvelopeItemType = "PHYSICAL"
	RedEnvelopeCash     RedEnvelopeItemType = "CASH"
)

// QuizAnswer is one of the four fixed multiple-choice options.
type QuizAnswer string

const (
	AnswerA QuizAnswer = "A"
	AnswerB QuizAnswer = "B"
	AnswerC QuizAnswer = "C"
	AnswerD QuizAnswer = "D"
)

// MiniGameType tags which state machine currently owns the single runtime
// slot (spec §4.5 — at most one active).
type MiniGameType string

const (
	MiniGameNone        MiniGameType = "NONE"
	MiniGameRedEnvelope MiniGameType = "RED_ENVELOPE"
	MiniGameQuiz        MiniGameType = "QUIZ"
	MiniGameMinority    MiniGameType = "MINORITY"
)

// MiniGamePhase is the union of every state machine's phase names. Each
// engine only ever sets the subset relevant to its own MiniGameType.
type MiniGamePhase string

const (
	PhaseIdle      MiniGamePhase = "IDLE"
	PhaseShuffle   MiniGamePhase = "SHUFFLE"
	PhaseCountdown MiniGamePhase = "COUNTDOWN"
	PhaseGaming    MiniGamePhase = "GAMING"
	PhaseReveal    MiniGamePhase = "REVEAL"
	PhaseResult    MiniGamePhase = "RESULT"
	PhasePrepare   MiniGamePhase = "PREPARE"
)

// MinoritySettlementStatus is the outcome shape of a Minority round
// (spec §4.5).
type MinoritySettlementStatus string

const (
	MinorityRefund     MinoritySettlementStatus = "REFUND"
	MinorityHouseWins  MinoritySettlementStatus = "HOUSE_WINS"
	MinorityStandard   MinoritySettlementStatus = "STANDARD"
)
