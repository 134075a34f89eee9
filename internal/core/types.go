package core

const (
	BotName    = "Govorun"
	BotVersion = "0.1.0"
)

// Speaker identifies who produced an utterance.
type Speaker string

const (
	SpeakerHuman Speaker = "H"
	SpeakerBot   Speaker = "B"
	// SpeakerCommand marks out-of-band directives like the greeting
	// trigger; they are excluded from chat context windows by default.
	SpeakerCommand Speaker = "X"
)

// Utterance is one turn of a dialogue. Interpretation is a normalized,
// context-resolved restatement of Text, set lazily after the turn is
// processed; it is the only mutable field.
type Utterance struct {
	Who            Speaker
	Text           string
	Interpretation string
}

// Fact is one entry of the per-interlocutor knowledge base.
// Tag distinguishes the origin class, Label is a free-text audit trail.
type Fact struct {
	Text  string
	Tag   string
	Label string
}

const (
	FactTagProfile      = "profile"
	FactTagDialog       = "dialog"
	FactTagConfabulated = "confabulation"
)

// Candidate is one proposed reply, produced in bulk per turn and
// discarded at end of turn except for the committed one.
type Candidate struct {
	Algo               string
	PrevInterpretation string
	Text               string
	PBase              float64
	PEntail            float64
	// ConfabulatedFacts holds invented premises that found no match in
	// the knowledge base; they are persisted only if this candidate wins.
	ConfabulatedFacts []string
	Context           string
}

const (
	AlgoPQA       = "pqa_response"
	AlgoDodge     = "dodge_response"
	AlgoNoInfo    = "noinfo_response"
	AlgoChitchat  = "chitchat_response"
	AlgoSmalltalk = "smalltalk_response"
)

// Score is the combined rank of the candidate.
func (c *Candidate) Score() float64 {
	return c.PBase * c.PEntail
}
