package smells

import (
	"github.com/mlscent/mlscent/extract"
)

// Rule is one smell detector. Detect is a pure function of the extracted
// context: no shared mutable state, no ordering dependency on other rules.
// Rules fill SmellName, Line, Description and AdditionalInfo; the checker
// attributes file and function.
type Rule interface {
	Name() string
	Description() string
	Detect(ctx *extract.Context) []Finding
}

// rule carries the fixed name and description every detector embeds.
type rule struct {
	name        string
	description string
}

func (r rule) Name() string        { return r.name }
func (r rule) Description() string { return r.description }

func (r rule) finding(line int, info string) Finding {
	return Finding{
		SmellName:      r.name,
		Line:           line,
		Description:    r.description,
		AdditionalInfo: info,
	}
}
